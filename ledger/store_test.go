package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

func TestRecordStoreImmutability(t *testing.T) {
	store := NewRecordStore()

	holdings := interfaces.CiphertextHandle("holdings")
	rec := store.Submit(alice, interfaces.Identity{}, holdings, []byte("score"), time.Now())

	// Mutating the caller's slice must not reach the stored record.
	holdings[0] = 'X'
	stored, _, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.CiphertextHandle("holdings"), stored.HoldingsCiphertext)
}

func TestRecordStoreFinalizeOnce(t *testing.T) {
	store := NewRecordStore()
	rec := store.Submit(alice, interfaces.Identity{}, []byte("h"), []byte("s"), time.Now())

	require.NoError(t, store.Finalize(rec.ID, "first", 1))
	err := store.Finalize(rec.ID, "second", 2)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyFinalized)

	_, fin, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", fin.Summary)
	assert.Equal(t, uint32(1), fin.Score)
	assert.True(t, fin.Finalized)

	assert.ErrorIs(t, store.Finalize(42, "x", 0), interfaces.ErrNotFound)
}

func TestRecordStoreZeroIDIsNoRecord(t *testing.T) {
	store := NewRecordStore()
	store.Submit(alice, interfaces.Identity{}, []byte("h"), []byte("s"), time.Now())

	_, _, err := store.Get(0)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestPendingRequestsBindResolve(t *testing.T) {
	pending := NewPendingRequests()
	requestID := interfaces.RequestID{0x01}

	require.NoError(t, pending.Bind(requestID, 7))

	recordID, err := pending.Resolve(requestID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RecordID(7), recordID)

	// Duplicate bind fails and leaves the original mapping intact.
	err = pending.Bind(requestID, 8)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateRequest)
	recordID, err = pending.Resolve(requestID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RecordID(7), recordID)

	// Consumed entries remain resolvable tombstones.
	pending.Consume(requestID)
	recordID, err = pending.Resolve(requestID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RecordID(7), recordID)
}

func TestPendingRequestsZeroAndUnknown(t *testing.T) {
	pending := NewPendingRequests()

	_, err := pending.Resolve(interfaces.RequestID{})
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	_, err = pending.Resolve(interfaces.RequestID{0xff})
	assert.ErrorIs(t, err, interfaces.ErrUnknownRequest)

	assert.ErrorIs(t, pending.Bind(interfaces.RequestID{}, 1), interfaces.ErrUnknownRequest)
}
