// Package main (cmd/portfolio-server) implements the confidential portfolio
// server.
//
// The server accepts encrypted portfolio submissions, issues decryption
// requests to an external oracle, verifies proof-bearing oracle callbacks,
// and serves the public decrypted view of finalized records. Submissions and
// decryption requests are authenticated by a recoverable signature header;
// the oracle callback is authenticated solely by its proof.
//
// Two proof schemes are supported:
//
//   - ecdsa: the proof is a recoverable secp256k1 signature over the callback
//     digest, checked against a configured set of authorized oracle addresses.
//     Suitable for development and for oracles holding a plain signing key.
//
//   - tdx: the proof is a raw TDX quote whose report data binds the callback
//     digest, verified against Intel's PCS roots. Suitable for oracles running
//     inside a TDX guest.
//
// The oracle endpoint is either configured directly or discovered through DNS
// SRV records. Lifecycle events can be journaled to any combination of file,
// S3, IPFS and Vault backends.
//
// Configuration is handled through command-line flags, optionally seeded from
// a YAML file given with --config; flags set on the command line win.
//
// The server implements graceful shutdown on termination signals
// (SIGINT/SIGTERM) and supports health checks, metrics collection, and
// optional profiling endpoints.
//
// Example usage:
//
//	portfolio-server --listen-addr=0.0.0.0:8080 \
//	    --oracle-url=http://oracle.internal:9000 \
//	    --oracle-address=f39fd6e51aad88f6f4ce6ab8827279cfffb92266 \
//	    --journal=file:///var/lib/portfolio/journal
package main
