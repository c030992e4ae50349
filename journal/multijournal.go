package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// MultiJournal aggregates several journal backends for redundancy. Append
// writes to every available backend and succeeds if at least one accepted the
// event; Events reads from the first backend that answers.
type MultiJournal struct {
	backends []interfaces.Journal
	log      *slog.Logger
}

// NewMultiJournal creates a multi-journal over the given backends.
func NewMultiJournal(backends []interfaces.Journal, log *slog.Logger) *MultiJournal {
	if log == nil {
		log = slog.Default()
	}
	return &MultiJournal{backends: backends, log: log}
}

// Append writes the event to all available backends.
func (m *MultiJournal) Append(ctx context.Context, event interfaces.Event) error {
	var errs []error
	var success bool

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Journal backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Append(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to append event to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		return fmt.Errorf("all journal backends failed to append: %v", errs)
	}
	return nil
}

// Events returns the record's events from the first backend that has them.
func (m *MultiJournal) Events(ctx context.Context, id interfaces.RecordID) ([]interfaces.Event, error) {
	var errs []error

	for _, backend := range m.backends {
		reader, ok := backend.(interfaces.JournalReader)
		if !ok {
			continue
		}
		if !backend.Available(ctx) {
			continue
		}

		events, err := reader.Events(ctx, id)
		if err == nil {
			return events, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no readable journal backend", interfaces.ErrEventNotFound)
	}
	return nil, fmt.Errorf("all journal backends failed to read record %d: %v", id, errs)
}

// Available reports whether any backend is reachable.
func (m *MultiJournal) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns a composite identifier listing all backends.
func (m *MultiJournal) Name() string {
	names := make([]string, len(m.backends))
	for i, backend := range m.backends {
		names[i] = backend.Name()
	}
	return fmt.Sprintf("multi[%s]", strings.Join(names, ","))
}

// LocationURI returns a comma-separated list of backend URIs.
func (m *MultiJournal) LocationURI() string {
	uris := make([]string, len(m.backends))
	for i, backend := range m.backends {
		uris[i] = backend.LocationURI()
	}
	return strings.Join(uris, ",")
}
