package oracle

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/ruteri/confidential-portfolio-ledger/cryptoutils"
	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// MockOracle is an in-process DecryptionOracle for tests. It mints fresh
// request IDs, remembers the handles of every request, and can produce
// genuine proofs with its signing key.
type MockOracle struct {
	mu       sync.Mutex
	key      *ecdsa.PrivateKey
	requests map[interfaces.RequestID][]interfaces.CiphertextHandle
	lastID   interfaces.RequestID

	// NextErr, when set, is returned by the next RequestDecryption call and
	// cleared.
	NextErr error

	// FixedRequestID, when nonzero, is returned by every RequestDecryption
	// call instead of a fresh ID. Used to exercise duplicate-bind handling.
	FixedRequestID interfaces.RequestID
}

// NewMockOracle creates a mock oracle with a fresh signing key.
func NewMockOracle() (*MockOracle, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	return &MockOracle{
		key:      key,
		requests: make(map[interfaces.RequestID][]interfaces.CiphertextHandle),
	}, nil
}

// RequestDecryption implements interfaces.DecryptionOracle.
func (m *MockOracle) RequestDecryption(ctx context.Context, handles []interfaces.CiphertextHandle) (interfaces.RequestID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.NextErr; err != nil {
		m.NextErr = nil
		return interfaces.RequestID{}, err
	}

	requestID := m.FixedRequestID
	if requestID.IsZero() {
		id := uuid.Must(uuid.NewRandom())
		copy(requestID[:], crypto.Keccak256([]byte("mock-oracle-request"), id[:]))
	}

	m.requests[requestID] = handles
	m.lastID = requestID
	return requestID, nil
}

// Identity returns the mock oracle's signing identity, to be configured as
// the verifier's trust root.
func (m *MockOracle) Identity() interfaces.Identity {
	return cryptoutils.SignerIdentity(m.key)
}

// SignedResult produces a genuine (cleartext, proof) pair for a request.
func (m *MockOracle) SignedResult(requestID interfaces.RequestID, summary string, score uint32) ([]byte, []byte, error) {
	cleartext, err := cryptoutils.EncodePayload(summary, score)
	if err != nil {
		return nil, nil, err
	}

	proof, err := cryptoutils.SignCallback(m.key, requestID, cleartext)
	if err != nil {
		return nil, nil, err
	}
	return cleartext, proof, nil
}

// SignCleartext signs arbitrary cleartext bytes for a request, bypassing the
// payload encoding. Lets tests exercise authenticated-but-malformed payloads.
func (m *MockOracle) SignCleartext(requestID interfaces.RequestID, cleartext []byte) ([]byte, error) {
	return cryptoutils.SignCallback(m.key, requestID, cleartext)
}

// Handles returns the ciphertext handles a request was issued for.
func (m *MockOracle) Handles(requestID interfaces.RequestID) ([]interfaces.CiphertextHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handles, ok := m.requests[requestID]
	return handles, ok
}

// LastRequestID returns the most recently issued request ID.
func (m *MockOracle) LastRequestID() interfaces.RequestID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastID
}
