package journal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// IPFSJournal persists events as pinned IPFS objects. IPFS is
// content-addressed, so this backend is append-only: it cannot enumerate a
// record's events and does not implement JournalReader. The CID of every
// appended event is logged for external indexing.
type IPFSJournal struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSJournal creates an IPFS journal connected to the node API at
// host:port.
func NewIPFSJournal(host, port string, log *slog.Logger) (*IPFSJournal, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	return &IPFSJournal{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/", apiURL),
	}, nil
}

// Append adds and pins the encoded event.
func (j *IPFSJournal) Append(ctx context.Context, event interfaces.Event) error {
	if !j.shell.IsUp() {
		return fmt.Errorf("%w: ipfs node %s:%s", interfaces.ErrBackendUnavailable, j.host, j.port)
	}

	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	cid, err := j.shell.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		return fmt.Errorf("failed to add event to IPFS: %w", err)
	}

	j.log.Info("Journaled event to IPFS",
		slog.String("cid", cid),
		slog.Uint64("recordID", uint64(event.RecordID)),
		slog.String("kind", string(event.Kind)))
	return nil
}

// Available checks that the IPFS node answers.
func (j *IPFSJournal) Available(ctx context.Context) bool {
	if !j.shell.IsUp() {
		j.log.Debug("IPFS journal unavailable",
			slog.String("host", j.host),
			slog.String("port", j.port))
		return false
	}
	return true
}

// Name returns a unique identifier for this backend.
func (j *IPFSJournal) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", j.host, j.port)
}

// LocationURI returns the URI this backend was created from.
func (j *IPFSJournal) LocationURI() string {
	return j.locationURI
}
