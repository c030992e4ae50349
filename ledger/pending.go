package ledger

import (
	"fmt"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

type pendingEntry struct {
	recordID interfaces.RecordID
	consumed bool
}

// PendingRequests maps in-flight decryption request IDs to the records they
// will finalize. Entries are never removed: a consumed entry stays as a
// historical tombstone so a request ID can never be rebound to a different
// record. Like the record store, it is serialized by the owning Controller.
type PendingRequests struct {
	byRequest map[interfaces.RequestID]*pendingEntry
}

// NewPendingRequests creates an empty pending-request table.
func NewPendingRequests() *PendingRequests {
	return &PendingRequests{byRequest: make(map[interfaces.RequestID]*pendingEntry)}
}

// Bind inserts a requestID-to-recordID mapping. Fails with
// ErrDuplicateRequest if the request ID is already bound; request identifiers
// are expected to be unique per issuance, so a duplicate indicates a
// misbehaving oracle.
func (p *PendingRequests) Bind(requestID interfaces.RequestID, recordID interfaces.RecordID) error {
	if requestID.IsZero() {
		return fmt.Errorf("%w: zero request id cannot be bound", interfaces.ErrUnknownRequest)
	}
	if _, exists := p.byRequest[requestID]; exists {
		return fmt.Errorf("%w: %s", interfaces.ErrDuplicateRequest, requestID)
	}

	p.byRequest[requestID] = &pendingEntry{recordID: recordID}
	return nil
}

// Resolve returns the record a request ID is bound to. Fails with
// ErrUnknownRequest for the zero ID and for IDs never bound. Consumed entries
// still resolve; the caller's finalized guard rejects their reuse.
func (p *PendingRequests) Resolve(requestID interfaces.RequestID) (interfaces.RecordID, error) {
	if requestID.IsZero() {
		return 0, fmt.Errorf("%w: zero request id", interfaces.ErrUnknownRequest)
	}

	entry, ok := p.byRequest[requestID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrUnknownRequest, requestID)
	}
	return entry.recordID, nil
}

// Consume marks a request as having produced the finalizing callback.
func (p *PendingRequests) Consume(requestID interfaces.RequestID) {
	if entry, ok := p.byRequest[requestID]; ok {
		entry.consumed = true
	}
}
