// Package journal persists record lifecycle events to pluggable backends
// selected by URI scheme: local filesystem, Amazon S3, IPFS, or HashiCorp
// Vault. A multi-journal aggregates several backends, appending to every
// available one and reading back from the first that answers.
//
// The journal is an observability surface, not protocol state: the ledger
// treats append failures as log-worthy but never lets them abort an
// operation that has already committed.
package journal
