package ledger

import (
	"context"
	"log/slog"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// SlogNotifier logs lifecycle events as structured log lines.
type SlogNotifier struct {
	Log *slog.Logger
}

// Notify implements interfaces.Notifier.
func (n *SlogNotifier) Notify(ctx context.Context, event interfaces.Event) {
	n.Log.Info("Lifecycle event",
		slog.String("kind", string(event.Kind)),
		slog.Uint64("recordID", uint64(event.RecordID)),
		slog.String("requestID", event.RequestID.String()),
		slog.Time("timestamp", event.Timestamp))
}

// JournalNotifier appends lifecycle events to a journal. Append failures are
// logged and swallowed: the journal records observable events, it is not part
// of the protocol state, and its unavailability must not abort an operation
// that has already committed.
type JournalNotifier struct {
	Journal interfaces.Journal
	Log     *slog.Logger
}

// Notify implements interfaces.Notifier.
func (n *JournalNotifier) Notify(ctx context.Context, event interfaces.Event) {
	if err := n.Journal.Append(ctx, event); err != nil {
		n.Log.Error("Failed to journal lifecycle event",
			"err", err,
			slog.String("kind", string(event.Kind)),
			slog.Uint64("recordID", uint64(event.RecordID)))
	}
}
