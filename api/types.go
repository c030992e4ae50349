package api

import (
	"time"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// SignatureHeader carries the caller's hex-encoded recoverable signature over
// keccak256(method || path || keccak256(body)). The handler recovers the
// caller identity from it; requests without it are rejected.
const SignatureHeader = "X-Portfolio-Signature"

// DelegateHeader optionally names a second identity (hex address) allowed to
// request decryption of the submitted record.
const DelegateHeader = "X-Portfolio-Delegate"

// PortfolioProvider defines the client-side interface of the portfolio
// service. It abstracts submission, decryption requests and reads for callers
// that hold a signing identity.
type PortfolioProvider interface {
	// SubmitPortfolio submits an encrypted record and returns its allocated ID.
	SubmitPortfolio(delegate interfaces.Identity, holdings, score interfaces.CiphertextHandle) (*SubmitResponse, error)

	// RequestDecryption issues a decryption request for an owned record.
	RequestDecryption(id interfaces.RecordID) (interfaces.RequestID, error)

	// GetPortfolio reads the public decrypted view of a record.
	GetPortfolio(id interfaces.RecordID) (*interfaces.FinalizedPortfolio, error)
}

// SubmitRequest is the body of POST /api/portfolio/submit. The ciphertext
// handles are opaque and transported base64-encoded.
type SubmitRequest struct {
	HoldingsCiphertext []byte `json:"holdings_ciphertext"`
	ScoreCiphertext    []byte `json:"score_ciphertext"`
}

// SubmitResponse acknowledges a stored submission.
type SubmitResponse struct {
	RecordID  uint64    `json:"record_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestDecryptionResponse carries the oracle request ID bound to the record.
type RequestDecryptionResponse struct {
	RequestID string `json:"request_id"`
}

// CallbackRequest is the body of POST /api/oracle/callback, posted by the
// oracle once decryption completes. The proof, not a signature header,
// authenticates it.
type CallbackRequest struct {
	RequestID string `json:"request_id"`
	Cleartext []byte `json:"cleartext"`
	Proof     []byte `json:"proof"`
}

// CallbackResponse acknowledges a finalizing callback.
type CallbackResponse struct {
	RecordID uint64 `json:"record_id"`
}
