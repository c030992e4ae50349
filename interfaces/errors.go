package interfaces

import "errors"

// Protocol errors. All are terminal for the operation that raised them: the
// operation aborts with no partial state change and is never retried
// internally.
var (
	// ErrNotFound indicates an unallocated record ID.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyFinalized indicates an operation targeting a record whose
	// terminal state is already reached.
	ErrAlreadyFinalized = errors.New("record already finalized")

	// ErrUnknownRequest indicates a callback referencing a zero or unbound
	// request ID.
	ErrUnknownRequest = errors.New("unknown decryption request")

	// ErrDuplicateRequest indicates a request ID that is already bound to a
	// record. Request identifiers are expected to be unique per issuance.
	ErrDuplicateRequest = errors.New("duplicate decryption request")

	// ErrProofInvalid indicates that the callback proof does not authenticate
	// the cleartext for the given request. This is the security-critical
	// failure and is never downgraded to a softer error.
	ErrProofInvalid = errors.New("callback proof invalid")

	// ErrPayloadMalformed indicates an authenticated payload that cannot be
	// decoded into the expected (summary, score) tuple.
	ErrPayloadMalformed = errors.New("callback payload malformed")

	// ErrNotAuthorized indicates a caller that is neither the record owner
	// nor its delegate.
	ErrNotAuthorized = errors.New("caller not authorized for record")
)

// Journal errors.
var (
	// ErrEventNotFound indicates no journal entries exist for a record.
	ErrEventNotFound = errors.New("journal events not found")

	// ErrBackendUnavailable indicates the journal backend cannot be reached.
	ErrBackendUnavailable = errors.New("journal backend unavailable")

	// ErrInvalidLocationURI indicates a malformed journal location URI.
	ErrInvalidLocationURI = errors.New("invalid journal location URI")
)
