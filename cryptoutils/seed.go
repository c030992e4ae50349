package cryptoutils

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/argon2"
)

// DeriveSigningSeed stretches a passphrase into a 32-byte signing seed using
// argon2id. The salt must be stable across restarts for the derived oracle
// identity to remain authorized.
func DeriveSigningSeed(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// SigningKeyFromSeed turns a 32-byte seed into a secp256k1 signing key.
func SigningKeyFromSeed(seed []byte) (*ecdsa.PrivateKey, error) {
	if len(seed) != 32 {
		return nil, fmt.Errorf("signing seed must be 32 bytes, got %d", len(seed))
	}

	key, err := crypto.ToECDSA(seed)
	if err != nil {
		return nil, fmt.Errorf("seed is not a valid secp256k1 scalar: %w", err)
	}
	return key, nil
}
