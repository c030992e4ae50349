// Package cryptoutils implements the cryptographic glue of the portfolio
// ledger: the fixed binary encoding of decrypted payloads, the callback proof
// schemes (secp256k1 signatures against an authorized address set, or TDX
// quotes binding the callback digest), request authentication for caller
// identity recovery, and signing-seed derivation for the oracle simulator.
//
// The encryption scheme itself stays external: ciphertext handles are opaque
// to every function in this package.
package cryptoutils
