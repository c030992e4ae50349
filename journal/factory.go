package journal

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// Factory creates journal backends from URI strings and assembles
// multi-backend configurations for redundant journaling.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a journal factory.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// JournalFor creates a journal backend from a location URI.
//
// Supported schemes:
//   - file:///var/lib/ledger/journal
//   - s3://bucket/prefix?region=us-east-1&endpoint=...&access_key=...&secret_key=...
//   - ipfs://host:port
//   - vault://host:8200/mount/path?scheme=https
//
// Returns ErrInvalidLocationURI wrapped errors for malformed URIs and an
// error for unsupported schemes.
func (f *Factory) JournalFor(locationURI interfaces.JournalLocation) (interfaces.Journal, error) {
	u, err := url.Parse(string(locationURI))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewFileJournal(u.Path, f.log)
	case "s3":
		return f.createS3Journal(u)
	case "ipfs":
		return f.createIPFSJournal(u)
	case "vault":
		return f.createVaultJournal(u)
	default:
		return nil, fmt.Errorf("unsupported journal scheme: %s", u.Scheme)
	}
}

// CreateMultiJournal creates a multi-journal from a list of location URIs.
// Backends that fail to construct are skipped with a warning; at least one
// backend must construct successfully.
func (f *Factory) CreateMultiJournal(locationURIs []interfaces.JournalLocation) (*MultiJournal, error) {
	backends := make([]interfaces.Journal, 0, len(locationURIs))

	for _, uri := range locationURIs {
		backend, err := f.JournalFor(uri)
		if err != nil {
			f.log.Warn("Failed to create journal backend",
				"err", err,
				slog.String("locationURI", string(uri)))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid journal backends created")
	}
	return NewMultiJournal(backends, f.log), nil
}

func (f *Factory) createS3Journal(u *url.URL) (interfaces.Journal, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%w: s3 URI requires a bucket", interfaces.ErrInvalidLocationURI)
	}

	params := u.Query()
	region := params.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	return NewS3Journal(
		u.Host,
		strings.TrimPrefix(u.Path, "/"),
		region,
		params.Get("endpoint"),
		params.Get("access_key"),
		params.Get("secret_key"),
		f.log,
	)
}

func (f *Factory) createIPFSJournal(u *url.URL) (interfaces.Journal, error) {
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: ipfs URI requires a host", interfaces.ErrInvalidLocationURI)
	}

	port := u.Port()
	if port == "" {
		port = "5001"
	}
	return NewIPFSJournal(host, port, f.log)
}

func (f *Factory) createVaultJournal(u *url.URL) (interfaces.Journal, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%w: vault URI requires a host", interfaces.ErrInvalidLocationURI)
	}

	scheme := u.Query().Get("scheme")
	if scheme == "" {
		scheme = "https"
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: vault URI path must be /mount/dataPath", interfaces.ErrInvalidLocationURI)
	}

	return NewVaultJournal(fmt.Sprintf("%s://%s", scheme, u.Host), parts[0], parts[1], f.log)
}
