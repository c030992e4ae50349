package interfaces

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordID identifies a submitted portfolio record. IDs are allocated
// monotonically starting at 1 and are never reused. Zero is reserved as
// "no record".
type RecordID uint64

// Bytes returns the big-endian 8-byte encoding of the record ID.
func (id RecordID) Bytes() []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

// RequestID identifies an in-flight decryption request issued to the oracle.
// The zero value is reserved as "no request".
type RequestID [32]byte

// NewRequestIDFromBytes creates a request ID from a 32-byte slice.
func NewRequestIDFromBytes(source []byte) (RequestID, error) {
	if len(source) != 32 {
		return RequestID{}, errors.New("invalid request ID length: must be 32 bytes")
	}

	var id RequestID
	copy(id[:], source)
	return id, nil
}

// NewRequestIDFromHex creates a request ID from a 64-character hex string.
func NewRequestIDFromHex(source string) (RequestID, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return RequestID{}, errors.New("invalid request ID length: hex string must be 64 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return RequestID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewRequestIDFromBytes(idBytes)
}

// String returns the hex representation of the request ID.
func (id RequestID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 32-byte request ID.
func (id RequestID) Bytes() []byte {
	return id[:]
}

// IsZero reports whether the request ID is the reserved zero value.
func (id RequestID) IsZero() bool {
	return id == RequestID{}
}

// Identity represents the 20-byte address of a submitting or delegated party.
// The zero value means "no identity".
type Identity [20]byte

// NewIdentityFromBytes creates an identity from a 20-byte slice.
func NewIdentityFromBytes(addr []byte) (Identity, error) {
	if len(addr) != 20 {
		return Identity{}, errors.New("invalid identity length: must be 20 bytes")
	}

	var res Identity
	copy(res[:], addr)
	return res, nil
}

// NewIdentityFromHex creates an identity from a 40-character hex string.
func NewIdentityFromHex(addr string) (Identity, error) {
	clean := strings.TrimPrefix(addr, "0x")
	if len(clean) != 40 {
		return Identity{}, errors.New("invalid identity length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewIdentityFromBytes(addrBytes)
}

// String returns the hex string representation of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 20-byte identity.
func (id Identity) Bytes() []byte {
	return id[:]
}

// IsZero reports whether the identity is the reserved zero value.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// CiphertextHandle is an opaque reference to an externally encrypted value.
// The core never inspects it; it is produced and consumed by the external
// encryption and oracle subsystem.
type CiphertextHandle []byte

// EncryptedRecord is a submitted portfolio in its confidential form.
// It is immutable once created and owned exclusively by the record store.
type EncryptedRecord struct {
	ID                 RecordID         `json:"id"`
	Owner              Identity         `json:"owner"`
	Delegate           Identity         `json:"delegate,omitempty"`
	HoldingsCiphertext CiphertextHandle `json:"holdings_ciphertext"`
	ScoreCiphertext    CiphertextHandle `json:"score_ciphertext"`
	CreatedAt          time.Time        `json:"created_at"`
}

// FinalizedPortfolio is the decrypted counterpart of an encrypted record.
// It is created empty at submission time and mutated exactly once when a
// verified callback arrives. For unknown or unfinalized records the zero
// value is returned.
type FinalizedPortfolio struct {
	Summary   string `json:"summary"`
	Score     uint32 `json:"score"`
	Finalized bool   `json:"finalized"`
}

// DecodedPayload is the cleartext tuple authenticated by a callback proof.
type DecodedPayload struct {
	Summary string
	Score   uint32
}
