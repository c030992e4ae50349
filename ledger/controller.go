package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
	"github.com/ruteri/confidential-portfolio-ledger/metrics"
)

// Controller orchestrates the submit, request-decryption and callback
// operations against the record store and the pending-request table,
// enforcing the protocol invariants and emitting lifecycle notifications.
type Controller struct {
	mu sync.Mutex

	store   *RecordStore
	pending *PendingRequests

	oracle    interfaces.DecryptionOracle
	verifier  interfaces.ProofVerifier
	notifiers []interfaces.Notifier
	log       *slog.Logger

	now func() time.Time
}

// NewController creates a protocol controller with fresh, empty tables.
// Notifiers receive an event after each committed state transition.
func NewController(oracle interfaces.DecryptionOracle, verifier interfaces.ProofVerifier, log *slog.Logger, notifiers ...interfaces.Notifier) *Controller {
	return &Controller{
		store:     NewRecordStore(),
		pending:   NewPendingRequests(),
		oracle:    oracle,
		verifier:  verifier,
		notifiers: notifiers,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the controller's time source. Test hook.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// SubmitPortfolio stores a new encrypted record bound to the submitting
// identity, with an optional delegate allowed to request its decryption.
// The ciphertext handles are opaque and never inspected. Given a nonzero
// owner the operation always succeeds.
func (c *Controller) SubmitPortfolio(ctx context.Context, owner, delegate interfaces.Identity, holdings, score interfaces.CiphertextHandle) (interfaces.EncryptedRecord, error) {
	if owner.IsZero() {
		return interfaces.EncryptedRecord{}, fmt.Errorf("%w: submission requires a nonzero identity", interfaces.ErrNotAuthorized)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.store.Submit(owner, delegate, holdings, score, c.now())
	metrics.SubmittedTotal.Inc()
	c.log.Info("Portfolio submitted", "recordID", uint64(rec.ID), "owner", owner.String())

	c.notify(ctx, interfaces.Event{
		Kind:      interfaces.EventSubmitted,
		RecordID:  rec.ID,
		Timestamp: rec.CreatedAt,
	})
	return rec, nil
}

// RequestDecryption asks the oracle to decrypt a record's ciphertext handles
// and binds the returned request ID to the record. Only the record's owner or
// its delegate may request decryption. A record may accumulate multiple
// outstanding requests while unfinalized; requesting decryption of a
// finalized record fails with ErrAlreadyFinalized.
func (c *Controller) RequestDecryption(ctx context.Context, caller interfaces.Identity, id interfaces.RecordID) (interfaces.RequestID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	requestID, err := c.requestDecryption(ctx, caller, id)
	metrics.DecryptionRequestsTotal.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		return interfaces.RequestID{}, err
	}

	c.log.Info("Decryption requested", "recordID", uint64(id), "requestID", requestID.String())
	c.notify(ctx, interfaces.Event{
		Kind:      interfaces.EventDecryptionRequested,
		RecordID:  id,
		RequestID: requestID,
		Timestamp: c.now(),
	})
	return requestID, nil
}

func (c *Controller) requestDecryption(ctx context.Context, caller interfaces.Identity, id interfaces.RecordID) (interfaces.RequestID, error) {
	rec, fin, err := c.store.Get(id)
	if err != nil {
		return interfaces.RequestID{}, err
	}
	if fin.Finalized {
		return interfaces.RequestID{}, fmt.Errorf("%w: record %d", interfaces.ErrAlreadyFinalized, id)
	}
	if caller != rec.Owner && (rec.Delegate.IsZero() || caller != rec.Delegate) {
		return interfaces.RequestID{}, fmt.Errorf("%w: %s may not request decryption of record %d", interfaces.ErrNotAuthorized, caller, id)
	}

	requestID, err := c.oracle.RequestDecryption(ctx, []interfaces.CiphertextHandle{rec.HoldingsCiphertext, rec.ScoreCiphertext})
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("oracle request failed: %w", err)
	}
	if requestID.IsZero() {
		return interfaces.RequestID{}, errors.New("oracle returned a zero request id")
	}

	// Binding is the only mutation of this operation; a duplicate id from the
	// oracle aborts it with no state change.
	if err := c.pending.Bind(requestID, id); err != nil {
		return interfaces.RequestID{}, err
	}
	return requestID, nil
}

// Callback is the asynchronous second half of a decryption request, invoked
// by the external oracle. The proof check runs before any state mutation; a
// forged or mismatched callback aborts exactly as a malformed one does. The
// operation is idempotent in effect: only the first verified callback for a
// record finalizes it, every later callback (even via a different request)
// fails with ErrAlreadyFinalized.
func (c *Controller) Callback(ctx context.Context, requestID interfaces.RequestID, cleartext, proof []byte) (interfaces.RecordID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	recordID, err := c.callback(requestID, cleartext, proof)
	metrics.CallbacksTotal.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		return recordID, err
	}

	c.log.Info("Portfolio finalized", "recordID", uint64(recordID), "requestID", requestID.String())
	c.notify(ctx, interfaces.Event{
		Kind:      interfaces.EventFinalized,
		RecordID:  recordID,
		RequestID: requestID,
		Timestamp: c.now(),
	})
	return recordID, nil
}

func (c *Controller) callback(requestID interfaces.RequestID, cleartext, proof []byte) (interfaces.RecordID, error) {
	recordID, err := c.pending.Resolve(requestID)
	if err != nil {
		return 0, err
	}

	// Guards against a duplicate callback racing a prior one.
	_, fin, err := c.store.Get(recordID)
	if err != nil {
		return recordID, err
	}
	if fin.Finalized {
		return recordID, fmt.Errorf("%w: record %d", interfaces.ErrAlreadyFinalized, recordID)
	}

	payload, err := c.verifier.Verify(requestID, cleartext, proof)
	if err != nil {
		return recordID, err
	}

	if err := c.store.Finalize(recordID, payload.Summary, payload.Score); err != nil {
		return recordID, err
	}
	c.pending.Consume(requestID)
	return recordID, nil
}

// GetFinalized returns the decrypted result of a record. Per the read
// contract it returns the zero triple for unknown as well as unfinalized
// records; use Get for an existence check.
func (c *Controller) GetFinalized(ctx context.Context, id interfaces.RecordID) interfaces.FinalizedPortfolio {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, fin, err := c.store.Get(id)
	if err != nil {
		return interfaces.FinalizedPortfolio{}
	}
	return fin
}

// Get returns both halves of a record. Fails with ErrNotFound for
// unallocated IDs.
func (c *Controller) Get(ctx context.Context, id interfaces.RecordID) (interfaces.EncryptedRecord, interfaces.FinalizedPortfolio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Get(id)
}

// notify runs with the controller lock held, after the transition committed.
// Notifier failures are the notifier's problem; they cannot unwind state.
func (c *Controller) notify(ctx context.Context, event interfaces.Event) {
	for _, n := range c.notifiers {
		n.Notify(ctx, event)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, interfaces.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, interfaces.ErrAlreadyFinalized):
		return metrics.OutcomeAlreadyFinalized
	case errors.Is(err, interfaces.ErrUnknownRequest):
		return metrics.OutcomeUnknownRequest
	case errors.Is(err, interfaces.ErrProofInvalid):
		return metrics.OutcomeProofInvalid
	case errors.Is(err, interfaces.ErrPayloadMalformed):
		return metrics.OutcomePayloadMalformed
	case errors.Is(err, interfaces.ErrNotAuthorized):
		return metrics.OutcomeNotAuthorized
	default:
		return metrics.OutcomeError
	}
}
