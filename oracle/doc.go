// Package oracle provides the outbound client for the external decryption
// oracle, DNS-based discovery of oracle endpoints, and an in-process mock for
// tests. The oracle decrypts ciphertext handles off the critical path and
// delivers the proof-bearing result asynchronously through the ledger's
// callback entry point; the client here is trusted only to return a fresh
// request identifier.
package oracle
