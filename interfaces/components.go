package interfaces

import (
	"context"
	"time"
)

// DecryptionOracle is the outbound interface used to ask the external trusted
// computation service to decrypt a set of ciphertext handles. The call itself
// performs no verification and is trusted only to return a fresh, nonzero
// request identifier; the decrypted result arrives later through the callback
// entry point.
type DecryptionOracle interface {
	RequestDecryption(ctx context.Context, handles []CiphertextHandle) (RequestID, error)
}

// ProofVerifier validates that a callback's cleartext payload and accompanying
// proof are authentic for the given request identifier.
//
// Verify returns ErrProofInvalid when the proof does not authenticate the
// cleartext against the oracle's trust root, and ErrPayloadMalformed when the
// authenticated cleartext cannot be decoded into the expected tuple.
type ProofVerifier interface {
	Verify(requestID RequestID, cleartext []byte, proof []byte) (DecodedPayload, error)
}

// ProtocolController is the single entry point for all protocol operations.
// Implementations serialize operations so every transition observes a
// consistent store and pending-request table.
type ProtocolController interface {
	// SubmitPortfolio stores a new encrypted record owned by the caller.
	SubmitPortfolio(ctx context.Context, owner, delegate Identity, holdings, score CiphertextHandle) (EncryptedRecord, error)

	// RequestDecryption issues an oracle decryption request for a record.
	// Owner or delegate only; fails with ErrAlreadyFinalized on finalized
	// records.
	RequestDecryption(ctx context.Context, caller Identity, id RecordID) (RequestID, error)

	// Callback verifies and applies an oracle decryption result. The first
	// verified callback finalizes the record; later ones fail with
	// ErrAlreadyFinalized.
	Callback(ctx context.Context, requestID RequestID, cleartext, proof []byte) (RecordID, error)

	// GetFinalized returns the decrypted result, or the zero triple for
	// unknown and unfinalized records.
	GetFinalized(ctx context.Context, id RecordID) FinalizedPortfolio

	// Get returns both halves of a record, ErrNotFound for unallocated IDs.
	Get(ctx context.Context, id RecordID) (EncryptedRecord, FinalizedPortfolio, error)
}

// EventKind enumerates record lifecycle transitions.
type EventKind string

const (
	// EventSubmitted marks the creation of an encrypted record.
	EventSubmitted EventKind = "submitted"
	// EventDecryptionRequested marks the issuance of a decryption request.
	EventDecryptionRequested EventKind = "decryption_requested"
	// EventFinalized marks the one-time finalization of a record.
	EventFinalized EventKind = "finalized"
)

// Event is an observable lifecycle notification, one per state transition.
type Event struct {
	Kind      EventKind `json:"kind"`
	RecordID  RecordID  `json:"record_id"`
	RequestID RequestID `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives lifecycle events after the corresponding transition has
// committed. Notifier failures must not affect protocol state.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Journal persists lifecycle events. Backends that cannot enumerate stored
// content (content-addressed stores) implement Append only; backends that can
// also implement JournalReader.
type Journal interface {
	// Append persists a single event.
	Append(ctx context.Context, event Event) error

	// Available checks if the backend is currently accessible.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this backend.
	Name() string

	// LocationURI returns the URI the backend was created from.
	LocationURI() string
}

// JournalReader enumerates the persisted events of a record in append order.
type JournalReader interface {
	Events(ctx context.Context, id RecordID) ([]Event, error)
}

// JournalLocation represents a URI for a journal backend, e.g.
// file:///var/journal or s3://bucket/prefix?region=us-east-1.
type JournalLocation string
