// Package interfaces defines the core types and component contracts for the
// confidential portfolio ledger. It provides the contract between the protocol
// controller, the decryption oracle, the proof verifier, and the event journal
// without implementation details.
package interfaces
