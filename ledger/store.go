package ledger

import (
	"fmt"
	"time"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// record pairs an immutable encrypted record with its finalized counterpart.
type record struct {
	encrypted interfaces.EncryptedRecord
	finalized interfaces.FinalizedPortfolio
}

// RecordStore owns the set of submitted encrypted records and their (possibly
// still-empty) finalized counterparts, and assigns record identities.
//
// The store is not safe for concurrent use on its own: it is owned by a
// Controller, which serializes all access. No other component writes to it.
type RecordStore struct {
	records map[interfaces.RecordID]*record
	nextID  interfaces.RecordID
}

// NewRecordStore creates an empty record store. The first allocated record ID
// is 1; zero stays reserved as "no record".
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[interfaces.RecordID]*record),
		nextID:  1,
	}
}

// Submit allocates the next record ID and stores the encrypted record along
// with an empty finalized counterpart. Ciphertext handles are copied so later
// caller mutations cannot reach the stored record.
func (s *RecordStore) Submit(owner, delegate interfaces.Identity, holdings, score interfaces.CiphertextHandle, createdAt time.Time) interfaces.EncryptedRecord {
	id := s.nextID
	s.nextID++

	rec := interfaces.EncryptedRecord{
		ID:                 id,
		Owner:              owner,
		Delegate:           delegate,
		HoldingsCiphertext: append(interfaces.CiphertextHandle(nil), holdings...),
		ScoreCiphertext:    append(interfaces.CiphertextHandle(nil), score...),
		CreatedAt:          createdAt,
	}
	s.records[id] = &record{encrypted: rec}
	return rec
}

// Get returns the encrypted record and its finalized counterpart.
// Fails with ErrNotFound for unallocated IDs (including zero).
func (s *RecordStore) Get(id interfaces.RecordID) (interfaces.EncryptedRecord, interfaces.FinalizedPortfolio, error) {
	rec, ok := s.records[id]
	if !ok {
		return interfaces.EncryptedRecord{}, interfaces.FinalizedPortfolio{}, fmt.Errorf("%w: record %d", interfaces.ErrNotFound, id)
	}
	return rec.encrypted, rec.finalized, nil
}

// Finalize attaches the verified cleartext result to a record. The
// false-to-true transition happens exactly once: a second call fails with
// ErrAlreadyFinalized and leaves the stored result untouched.
func (s *RecordStore) Finalize(id interfaces.RecordID, summary string, score uint32) error {
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: record %d", interfaces.ErrNotFound, id)
	}
	if rec.finalized.Finalized {
		return fmt.Errorf("%w: record %d", interfaces.ErrAlreadyFinalized, id)
	}

	rec.finalized = interfaces.FinalizedPortfolio{
		Summary:   summary,
		Score:     score,
		Finalized: true,
	}
	return nil
}
