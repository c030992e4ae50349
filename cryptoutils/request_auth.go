package cryptoutils

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// RequestDigest computes the digest a caller signs to authenticate an API
// request: keccak256(method || path || keccak256(body)). Hashing the body
// separately keeps the digest fixed-size for arbitrarily large submissions.
func RequestDigest(method, path string, body []byte) []byte {
	return crypto.Keccak256([]byte(method), []byte(path), crypto.Keccak256(body))
}

// SignRequest produces the identity signature carried in the
// X-Portfolio-Signature header.
func SignRequest(key *ecdsa.PrivateKey, method, path string, body []byte) ([]byte, error) {
	return crypto.Sign(RequestDigest(method, path, body), key)
}

// RecoverRequestSigner recovers the caller identity from a request signature.
func RecoverRequestSigner(method, path string, body []byte, signature []byte) (interfaces.Identity, error) {
	if len(signature) != signatureLength {
		return interfaces.Identity{}, fmt.Errorf("request signature must be %d bytes, got %d", signatureLength, len(signature))
	}

	pubkey, err := crypto.SigToPub(RequestDigest(method, path, body), signature)
	if err != nil {
		return interfaces.Identity{}, fmt.Errorf("could not recover request signer: %w", err)
	}

	return interfaces.Identity(crypto.PubkeyToAddress(*pubkey)), nil
}
