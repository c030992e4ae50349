package cryptoutils

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// Payload wire format: [summary length (2 bytes, big-endian)][summary bytes]
// [score (4 bytes, big-endian)]. Trailing bytes are rejected.
const payloadOverhead = 2 + 4

// EncodePayload serializes a (summary, score) tuple into the fixed callback
// cleartext encoding.
func EncodePayload(summary string, score uint32) ([]byte, error) {
	if len(summary) > math.MaxUint16 {
		return nil, fmt.Errorf("summary too long: %d bytes", len(summary))
	}

	buf := make([]byte, payloadOverhead+len(summary))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(summary)))
	copy(buf[2:2+len(summary)], summary)
	binary.BigEndian.PutUint32(buf[2+len(summary):], score)
	return buf, nil
}

// DecodePayload parses callback cleartext into its (summary, score) tuple.
// Returns ErrPayloadMalformed on truncated input, length mismatch, or
// trailing bytes.
func DecodePayload(cleartext []byte) (interfaces.DecodedPayload, error) {
	if len(cleartext) < payloadOverhead {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: %d bytes is below minimum", interfaces.ErrPayloadMalformed, len(cleartext))
	}

	summaryLen := int(binary.BigEndian.Uint16(cleartext[0:2]))
	if len(cleartext) != payloadOverhead+summaryLen {
		return interfaces.DecodedPayload{}, fmt.Errorf("%w: expected %d bytes for summary length %d, got %d",
			interfaces.ErrPayloadMalformed, payloadOverhead+summaryLen, summaryLen, len(cleartext))
	}

	return interfaces.DecodedPayload{
		Summary: string(cleartext[2 : 2+summaryLen]),
		Score:   binary.BigEndian.Uint32(cleartext[2+summaryLen:]),
	}, nil
}
