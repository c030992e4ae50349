package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/confidential-portfolio-ledger/cryptoutils"
	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
	"github.com/ruteri/confidential-portfolio-ledger/oracle"
)

var (
	alice = interfaces.Identity{0xa1}
	bob   = interfaces.Identity{0xb0}
	carol = interfaces.Identity{0xca}
)

type eventRecorder struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *eventRecorder) Notify(ctx context.Context, event interfaces.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) kinds() []interfaces.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]interfaces.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func newTestController(t *testing.T) (*Controller, *oracle.MockOracle, *eventRecorder) {
	t.Helper()

	mock, err := oracle.NewMockOracle()
	require.NoError(t, err)

	verifier, err := cryptoutils.NewECDSAVerifier([]interfaces.Identity{mock.Identity()})
	require.NoError(t, err)

	recorder := &eventRecorder{}
	controller := NewController(mock, verifier, slog.Default(), recorder)
	return controller, mock, recorder
}

func TestSubmitAllocatesMonotonicIDs(t *testing.T) {
	controller, _, recorder := newTestController(t)
	ctx := context.Background()

	first, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h1"), []byte("s1"))
	require.NoError(t, err)
	second, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h2"), []byte("s2"))
	require.NoError(t, err)

	assert.Equal(t, interfaces.RecordID(1), first.ID)
	assert.Equal(t, interfaces.RecordID(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	// Unfinalized immediately after submit, before any callback.
	assert.Equal(t, interfaces.FinalizedPortfolio{}, controller.GetFinalized(ctx, first.ID))
	assert.Equal(t, []interfaces.EventKind{interfaces.EventSubmitted, interfaces.EventSubmitted}, recorder.kinds())
}

func TestSubmitRequiresIdentity(t *testing.T) {
	controller, _, _ := newTestController(t)

	_, err := controller.SubmitPortfolio(context.Background(), interfaces.Identity{}, interfaces.Identity{}, []byte("h"), []byte("s"))
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
}

func TestRoundTripFinalization(t *testing.T) {
	controller, mock, recorder := newTestController(t)
	ctx := context.Background()

	rec, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("holdings-ct"), []byte("score-ct"))
	require.NoError(t, err)

	requestID, err := controller.RequestDecryption(ctx, alice, rec.ID)
	require.NoError(t, err)
	assert.False(t, requestID.IsZero())

	// The oracle received the record's handles in order.
	handles, ok := mock.Handles(requestID)
	require.True(t, ok)
	require.Len(t, handles, 2)
	assert.Equal(t, interfaces.CiphertextHandle("holdings-ct"), handles[0])
	assert.Equal(t, interfaces.CiphertextHandle("score-ct"), handles[1])

	cleartext, proof, err := mock.SignedResult(requestID, "Balanced portfolio", 72)
	require.NoError(t, err)

	recordID, err := controller.Callback(ctx, requestID, cleartext, proof)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, recordID)

	fin := controller.GetFinalized(ctx, rec.ID)
	assert.Equal(t, interfaces.FinalizedPortfolio{Summary: "Balanced portfolio", Score: 72, Finalized: true}, fin)

	assert.Equal(t, []interfaces.EventKind{
		interfaces.EventSubmitted,
		interfaces.EventDecryptionRequested,
		interfaces.EventFinalized,
	}, recorder.kinds())
}

func TestRequestDecryptionPreconditions(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	_, err := controller.RequestDecryption(ctx, alice, 99)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	rec, err := controller.SubmitPortfolio(ctx, alice, bob, []byte("h"), []byte("s"))
	require.NoError(t, err)

	// Non-owner, non-delegate is rejected.
	_, err = controller.RequestDecryption(ctx, carol, rec.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	// Delegate succeeds.
	requestID, err := controller.RequestDecryption(ctx, bob, rec.ID)
	require.NoError(t, err)

	cleartext, proof, err := mock.SignedResult(requestID, "Delegated", 1)
	require.NoError(t, err)
	_, err = controller.Callback(ctx, requestID, cleartext, proof)
	require.NoError(t, err)

	// Requesting decryption of a finalized record is rejected.
	_, err = controller.RequestDecryption(ctx, alice, rec.ID)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyFinalized)
}

func TestMultipleOutstandingRequestsOnlyFirstCallbackFinalizes(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	rec, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h"), []byte("s"))
	require.NoError(t, err)

	// Two outstanding requests on a never-finalized record both succeed.
	firstReq, err := controller.RequestDecryption(ctx, alice, rec.ID)
	require.NoError(t, err)
	secondReq, err := controller.RequestDecryption(ctx, alice, rec.ID)
	require.NoError(t, err)
	require.NotEqual(t, firstReq, secondReq)

	cleartext, proof, err := mock.SignedResult(secondReq, "Second request wins", 7)
	require.NoError(t, err)
	_, err = controller.Callback(ctx, secondReq, cleartext, proof)
	require.NoError(t, err)

	// A callback via the other, still-pending request fails AlreadyFinalized.
	cleartext, proof, err = mock.SignedResult(firstReq, "Too late", 9)
	require.NoError(t, err)
	_, err = controller.Callback(ctx, firstReq, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyFinalized)

	// A duplicate callback via the consumed request also fails.
	cleartext, proof, err = mock.SignedResult(secondReq, "Replay", 8)
	require.NoError(t, err)
	_, err = controller.Callback(ctx, secondReq, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyFinalized)

	// The first verified result stands untouched.
	fin := controller.GetFinalized(ctx, rec.ID)
	assert.Equal(t, "Second request wins", fin.Summary)
	assert.Equal(t, uint32(7), fin.Score)
}

func TestCallbackUnknownRequest(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	neverIssued := interfaces.RequestID{0xde, 0xad}
	cleartext, proof, err := mock.SignedResult(neverIssued, "Forged", 1)
	require.NoError(t, err)

	_, err = controller.Callback(ctx, neverIssued, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	_, err = controller.Callback(ctx, interfaces.RequestID{}, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)
}

func TestCallbackTamperedProofLeavesRecordUnfinalized(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	rec, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h"), []byte("s"))
	require.NoError(t, err)
	requestID, err := controller.RequestDecryption(ctx, alice, rec.ID)
	require.NoError(t, err)

	cleartext, proof, err := mock.SignedResult(requestID, "Balanced portfolio", 72)
	require.NoError(t, err)
	proof[7] ^= 0xff

	_, err = controller.Callback(ctx, requestID, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrProofInvalid)
	assert.False(t, controller.GetFinalized(ctx, rec.ID).Finalized)

	// A proof from an unauthorized key fails identically.
	rogueKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	rogueProof, err := cryptoutils.SignCallback(rogueKey, requestID, cleartext)
	require.NoError(t, err)

	_, err = controller.Callback(ctx, requestID, cleartext, rogueProof)
	assert.ErrorIs(t, err, interfaces.ErrProofInvalid)
	assert.False(t, controller.GetFinalized(ctx, rec.ID).Finalized)
}

func TestCallbackMalformedPayload(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	rec, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h"), []byte("s"))
	require.NoError(t, err)
	requestID, err := controller.RequestDecryption(ctx, alice, rec.ID)
	require.NoError(t, err)

	// Authenticated but undecodable cleartext: distinct failure, no mutation.
	cleartext := []byte{0x01}
	proof, err := mock.SignCleartext(requestID, cleartext)
	require.NoError(t, err)

	_, err = controller.Callback(ctx, requestID, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrPayloadMalformed)
	assert.False(t, controller.GetFinalized(ctx, rec.ID).Finalized)
}

func TestNoCrossRecordEffect(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	recA, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("ha"), []byte("sa"))
	require.NoError(t, err)
	recB, err := controller.SubmitPortfolio(ctx, bob, interfaces.Identity{}, []byte("hb"), []byte("sb"))
	require.NoError(t, err)

	// Request decryption for A only.
	_, err = controller.RequestDecryption(ctx, alice, recA.ID)
	require.NoError(t, err)

	// Deliver a forged callback referencing a never-issued request id for B.
	forgedID := interfaces.RequestID{0xb0, 0x0b}
	cleartext, proof, err := mock.SignedResult(forgedID, "Forged B result", 99)
	require.NoError(t, err)

	_, err = controller.Callback(ctx, forgedID, cleartext, proof)
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	assert.False(t, controller.GetFinalized(ctx, recA.ID).Finalized)
	assert.False(t, controller.GetFinalized(ctx, recB.ID).Finalized)
}

func TestDuplicateRequestIDFromOracle(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	recA, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("ha"), []byte("sa"))
	require.NoError(t, err)
	recB, err := controller.SubmitPortfolio(ctx, bob, interfaces.Identity{}, []byte("hb"), []byte("sb"))
	require.NoError(t, err)

	mock.FixedRequestID = interfaces.RequestID{0x11}
	_, err = controller.RequestDecryption(ctx, alice, recA.ID)
	require.NoError(t, err)

	// The oracle repeating a request id must not rebind it to another record.
	_, err = controller.RequestDecryption(ctx, bob, recB.ID)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateRequest)

	cleartext, proof, err := mock.SignedResult(interfaces.RequestID{0x11}, "A result", 3)
	require.NoError(t, err)
	recordID, err := controller.Callback(ctx, interfaces.RequestID{0x11}, cleartext, proof)
	require.NoError(t, err)
	assert.Equal(t, recA.ID, recordID)
	assert.False(t, controller.GetFinalized(ctx, recB.ID).Finalized)
}

func TestOracleFailureAbortsWithoutBinding(t *testing.T) {
	controller, mock, recorder := newTestController(t)
	ctx := context.Background()

	rec, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h"), []byte("s"))
	require.NoError(t, err)

	mock.NextErr = errors.New("oracle unreachable")
	_, err = controller.RequestDecryption(ctx, alice, rec.ID)
	require.ErrorContains(t, err, "oracle unreachable")

	// No "decryption requested" notification was emitted for the aborted call.
	assert.Equal(t, []interfaces.EventKind{interfaces.EventSubmitted}, recorder.kinds())

	// The record is still requestable.
	_, err = controller.RequestDecryption(ctx, alice, rec.ID)
	assert.NoError(t, err)
}

func TestGetFinalizedZeroTripleForUnknown(t *testing.T) {
	controller, _, _ := newTestController(t)

	fin := controller.GetFinalized(context.Background(), 12345)
	assert.Equal(t, interfaces.FinalizedPortfolio{}, fin)

	_, _, err := controller.Get(context.Background(), 12345)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestInterleavedCallersAreSerialized(t *testing.T) {
	controller, mock, _ := newTestController(t)
	ctx := context.Background()

	rec, err := controller.SubmitPortfolio(ctx, alice, interfaces.Identity{}, []byte("h"), []byte("s"))
	require.NoError(t, err)

	const requesters = 8
	requestIDs := make([]interfaces.RequestID, requesters)
	var wg sync.WaitGroup
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := controller.RequestDecryption(ctx, alice, rec.ID)
			require.NoError(t, err)
			requestIDs[i] = id
		}(i)
	}
	wg.Wait()

	// Deliver callbacks for every request concurrently; exactly one wins.
	var finalized sync.Map
	wg = sync.WaitGroup{}
	for _, requestID := range requestIDs {
		wg.Add(1)
		go func(requestID interfaces.RequestID) {
			defer wg.Done()
			cleartext, proof, err := mock.SignedResult(requestID, "winner", 1)
			require.NoError(t, err)
			if _, err := controller.Callback(ctx, requestID, cleartext, proof); err == nil {
				finalized.Store(requestID, struct{}{})
			} else {
				require.ErrorIs(t, err, interfaces.ErrAlreadyFinalized)
			}
		}(requestID)
	}
	wg.Wait()

	winners := 0
	finalized.Range(func(_, _ any) bool { winners++; return true })
	assert.Equal(t, 1, winners)
	assert.True(t, controller.GetFinalized(ctx, rec.ID).Finalized)
}

func TestClockInjection(t *testing.T) {
	controller, _, _ := newTestController(t)
	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	controller.WithClock(func() time.Time { return fixed })

	rec, err := controller.SubmitPortfolio(context.Background(), alice, interfaces.Identity{}, []byte("h"), []byte("s"))
	require.NoError(t, err)
	assert.Equal(t, fixed, rec.CreatedAt)
}
