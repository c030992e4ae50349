package journal

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestFileJournalAppendAndReplay(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	requestID := interfaces.RequestID{0xab}

	events := []interfaces.Event{
		{Kind: interfaces.EventSubmitted, RecordID: 7, Timestamp: base},
		{Kind: interfaces.EventDecryptionRequested, RecordID: 7, RequestID: requestID, Timestamp: base.Add(time.Second)},
		{Kind: interfaces.EventFinalized, RecordID: 7, RequestID: requestID, Timestamp: base.Add(2 * time.Second)},
	}
	for _, event := range events {
		require.NoError(t, j.Append(ctx, event))
	}

	replayed, err := j.Events(ctx, 7)
	require.NoError(t, err)
	require.Len(t, replayed, 3)

	assert.Equal(t, interfaces.EventSubmitted, replayed[0].Kind)
	assert.Equal(t, interfaces.EventDecryptionRequested, replayed[1].Kind)
	assert.Equal(t, interfaces.EventFinalized, replayed[2].Kind)
	assert.Equal(t, requestID, replayed[2].RequestID)
	assert.True(t, replayed[2].Timestamp.Equal(base.Add(2*time.Second)))
}

func TestFileJournalReplayOrderIndependentOfAppendOrder(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// Append out of chronological order; replay must sort by timestamp key.
	require.NoError(t, j.Append(ctx, interfaces.Event{Kind: interfaces.EventFinalized, RecordID: 1, Timestamp: base.Add(2 * time.Second)}))
	require.NoError(t, j.Append(ctx, interfaces.Event{Kind: interfaces.EventSubmitted, RecordID: 1, Timestamp: base}))
	require.NoError(t, j.Append(ctx, interfaces.Event{Kind: interfaces.EventDecryptionRequested, RecordID: 1, Timestamp: base.Add(time.Second)}))

	replayed, err := j.Events(ctx, 1)
	require.NoError(t, err)
	require.Len(t, replayed, 3)
	assert.Equal(t, interfaces.EventSubmitted, replayed[0].Kind)
	assert.Equal(t, interfaces.EventDecryptionRequested, replayed[1].Kind)
	assert.Equal(t, interfaces.EventFinalized, replayed[2].Kind)
}

func TestFileJournalRecordsIsolated(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now()
	require.NoError(t, j.Append(ctx, interfaces.Event{Kind: interfaces.EventSubmitted, RecordID: 1, Timestamp: now}))
	require.NoError(t, j.Append(ctx, interfaces.Event{Kind: interfaces.EventSubmitted, RecordID: 2, Timestamp: now}))

	events, err := j.Events(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.RecordID(1), events[0].RecordID)
}

func TestFileJournalUnknownRecord(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = j.Events(context.Background(), 42)
	assert.ErrorIs(t, err, interfaces.ErrEventNotFound)
}

func TestFileJournalAvailable(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), testLogger())
	require.NoError(t, err)
	assert.True(t, j.Available(context.Background()))
}
