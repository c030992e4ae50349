// Package ledger implements the encrypted-record lifecycle protocol:
// submit, request-decryption, verified-callback, finalize.
//
// A single Controller owns the record arena and the pending-request index.
// Each public operation runs as an atomic unit of work: it either applies all
// of its effects (store mutation plus notification) or none of them. The
// controller serializes operations with a mutex, so the outcome is
// deterministic regardless of how requests and callbacks interleave; once a
// record is finalized every later operation touching it fails cleanly.
//
// The decryption oracle and the proof verifier are external collaborators
// consumed through the interfaces package. The callback is a privileged
// re-entry point invoked by an untrusted-until-verified party: its only trust
// anchor is the verifier's proof check, which runs before any state mutation.
package ledger
