package journal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// FileJournal persists events on the local file system, one file per event
// under a per-record directory.
type FileJournal struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileJournal creates a file journal rooted at baseDir, creating the
// directory if needed.
func NewFileJournal(baseDir string, log *slog.Logger) (*FileJournal, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	return &FileJournal{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Append writes the event to its per-record directory.
func (j *FileJournal) Append(ctx context.Context, event interfaces.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	dir := filepath.Join(j.baseDir, recordPrefix(event.RecordID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	path := filepath.Join(dir, eventKey(event))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	j.log.Debug("Journaled event to file",
		slog.String("path", path),
		slog.String("kind", string(event.Kind)))
	return nil
}

// Events replays a record's events in append order.
func (j *FileJournal) Events(ctx context.Context, id interfaces.RecordID) ([]interfaces.Event, error) {
	dir := filepath.Join(j.baseDir, recordPrefix(id))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: record %d", interfaces.ErrEventNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list record directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			keys = append(keys, entry.Name())
		}
	}
	sortEventsByKey(keys)

	events := make([]interfaces.Event, 0, len(keys))
	for _, key := range keys {
		data, err := os.ReadFile(filepath.Join(dir, key))
		if err != nil {
			return nil, fmt.Errorf("failed to read event %s: %w", key, err)
		}

		event, err := decodeEvent(data)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("%w: record %d", interfaces.ErrEventNotFound, id)
	}
	return events, nil
}

// Available checks that the journal directory still exists.
func (j *FileJournal) Available(ctx context.Context) bool {
	_, err := os.Stat(j.baseDir)
	if err != nil {
		j.log.Debug("File journal unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this backend.
func (j *FileJournal) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(j.baseDir))
}

// LocationURI returns the URI this backend was created from.
func (j *FileJournal) LocationURI() string {
	return j.locationURI
}
