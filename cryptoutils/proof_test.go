package cryptoutils

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

func TestECDSAVerifier(t *testing.T) {
	oracleKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	verifier, err := NewECDSAVerifier([]interfaces.Identity{SignerIdentity(oracleKey)})
	require.NoError(t, err)

	requestID := interfaces.RequestID{0x01, 0x02}
	cleartext, err := EncodePayload("Balanced portfolio", 72)
	require.NoError(t, err)

	proof, err := SignCallback(oracleKey, requestID, cleartext)
	require.NoError(t, err)

	payload, err := verifier.Verify(requestID, cleartext, proof)
	require.NoError(t, err)
	assert.Equal(t, "Balanced portfolio", payload.Summary)
	assert.Equal(t, uint32(72), payload.Score)
}

func TestECDSAVerifierRejectsUnauthorizedSigner(t *testing.T) {
	oracleKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	rogueKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	verifier, err := NewECDSAVerifier([]interfaces.Identity{SignerIdentity(oracleKey)})
	require.NoError(t, err)

	requestID := interfaces.RequestID{0xaa}
	cleartext, err := EncodePayload("Aggressive portfolio", 14)
	require.NoError(t, err)

	proof, err := SignCallback(rogueKey, requestID, cleartext)
	require.NoError(t, err)

	_, err = verifier.Verify(requestID, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrProofInvalid)
}

func TestECDSAVerifierRejectsTamperedProof(t *testing.T) {
	oracleKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	verifier, err := NewECDSAVerifier([]interfaces.Identity{SignerIdentity(oracleKey)})
	require.NoError(t, err)

	requestID := interfaces.RequestID{0xbb}
	cleartext, err := EncodePayload("Balanced portfolio", 72)
	require.NoError(t, err)

	proof, err := SignCallback(oracleKey, requestID, cleartext)
	require.NoError(t, err)

	// Flip a bit in the signature body.
	proof[10] ^= 0x01
	_, err = verifier.Verify(requestID, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrProofInvalid)

	// Wrong length proof.
	_, err = verifier.Verify(requestID, cleartext, proof[:64])
	assert.ErrorIs(t, err, interfaces.ErrProofInvalid)
}

func TestECDSAVerifierRejectsRequestIDSwap(t *testing.T) {
	oracleKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	verifier, err := NewECDSAVerifier([]interfaces.Identity{SignerIdentity(oracleKey)})
	require.NoError(t, err)

	cleartext, err := EncodePayload("Balanced portfolio", 72)
	require.NoError(t, err)

	proof, err := SignCallback(oracleKey, interfaces.RequestID{0x01}, cleartext)
	require.NoError(t, err)

	// A genuine proof replayed under a different request must not verify.
	_, err = verifier.Verify(interfaces.RequestID{0x02}, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrProofInvalid)
}

func TestECDSAVerifierMalformedPayloadIsDistinct(t *testing.T) {
	oracleKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	verifier, err := NewECDSAVerifier([]interfaces.Identity{SignerIdentity(oracleKey)})
	require.NoError(t, err)

	requestID := interfaces.RequestID{0xcc}
	cleartext := []byte{0x00, 0xff, 0x01} // authenticated but undecodable

	proof, err := SignCallback(oracleKey, requestID, cleartext)
	require.NoError(t, err)

	_, err = verifier.Verify(requestID, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrPayloadMalformed)
	assert.NotErrorIs(t, err, interfaces.ErrProofInvalid)
}

func TestNewECDSAVerifierValidation(t *testing.T) {
	_, err := NewECDSAVerifier(nil)
	assert.Error(t, err)

	_, err = NewECDSAVerifier([]interfaces.Identity{{}})
	assert.Error(t, err)
}

func TestRequestSignerRoundTrip(t *testing.T) {
	callerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	body := []byte(`{"holdings_ciphertext":"abc"}`)
	sig, err := SignRequest(callerKey, "POST", "/api/portfolio/submit", body)
	require.NoError(t, err)

	signer, err := RecoverRequestSigner("POST", "/api/portfolio/submit", body, sig)
	require.NoError(t, err)
	assert.Equal(t, SignerIdentity(callerKey), signer)

	// A different path must recover a different identity.
	other, err := RecoverRequestSigner("POST", "/api/portfolio/1/request-decryption", body, sig)
	require.NoError(t, err)
	assert.NotEqual(t, SignerIdentity(callerKey), other)
}

func TestSigningKeyFromSeed(t *testing.T) {
	seed := DeriveSigningSeed([]byte("correct horse battery staple"), []byte("portfolio-oracle"))
	require.Len(t, seed, 32)

	key, err := SigningKeyFromSeed(seed)
	require.NoError(t, err)

	// Deterministic: same passphrase and salt yield the same identity.
	again, err := SigningKeyFromSeed(DeriveSigningSeed([]byte("correct horse battery staple"), []byte("portfolio-oracle")))
	require.NoError(t, err)
	assert.Equal(t, SignerIdentity(key), SignerIdentity(again))

	_, err = SigningKeyFromSeed(seed[:16])
	assert.Error(t, err)
}
