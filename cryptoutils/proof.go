package cryptoutils

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// signatureLength is the size of a recoverable secp256k1 signature [R||S||V].
const signatureLength = 65

// CallbackDigest computes the digest a callback proof must authenticate:
// keccak256(requestID || cleartext). Binding the request ID into the digest
// prevents replaying a genuine result under a different request.
func CallbackDigest(requestID interfaces.RequestID, cleartext []byte) []byte {
	return crypto.Keccak256(requestID.Bytes(), cleartext)
}

// SignCallback produces a proof for a decryption result: a recoverable
// secp256k1 signature over the callback digest. Used by the oracle side.
func SignCallback(key *ecdsa.PrivateKey, requestID interfaces.RequestID, cleartext []byte) ([]byte, error) {
	return crypto.Sign(CallbackDigest(requestID, cleartext), key)
}

// SignerIdentity returns the 20-byte identity of a signing key.
func SignerIdentity(key *ecdsa.PrivateKey) interfaces.Identity {
	return interfaces.Identity(crypto.PubkeyToAddress(key.PublicKey))
}

// ECDSAVerifier checks callback proofs against a fixed set of authorized
// oracle signing identities. Any member of the set may attest a result.
type ECDSAVerifier struct {
	authorized map[interfaces.Identity]struct{}
}

// NewECDSAVerifier creates a verifier trusting the given oracle identities.
func NewECDSAVerifier(oracles []interfaces.Identity) (*ECDSAVerifier, error) {
	if len(oracles) == 0 {
		return nil, fmt.Errorf("at least one authorized oracle identity is required")
	}

	authorized := make(map[interfaces.Identity]struct{}, len(oracles))
	for _, id := range oracles {
		if id.IsZero() {
			return nil, fmt.Errorf("zero identity cannot be an authorized oracle")
		}
		authorized[id] = struct{}{}
	}
	return &ECDSAVerifier{authorized: authorized}, nil
}

// Verify recovers the proof's signer, checks it against the authorized set,
// and only then decodes the cleartext. A forged or mismatched proof fails
// with ErrProofInvalid exactly as a structurally broken one does; decoding
// failure of an authenticated payload is the distinct ErrPayloadMalformed.
func (v *ECDSAVerifier) Verify(requestID interfaces.RequestID, cleartext []byte, proof []byte) (interfaces.DecodedPayload, error) {
	if len(proof) != signatureLength {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: proof must be %d bytes, got %d",
			interfaces.ErrProofInvalid, signatureLength, len(proof))
	}

	pubkey, err := crypto.SigToPub(CallbackDigest(requestID, cleartext), proof)
	if err != nil {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: %v", interfaces.ErrProofInvalid, err)
	}

	signer := interfaces.Identity(crypto.PubkeyToAddress(*pubkey))
	if _, ok := v.authorized[signer]; !ok {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: signer %s not authorized", interfaces.ErrProofInvalid, signer)
	}

	return DecodePayload(cleartext)
}
