package portfoliohandler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ruteri/confidential-portfolio-ledger/api"
	"github.com/ruteri/confidential-portfolio-ledger/cryptoutils"
	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// Handler processes HTTP requests for the confidential portfolio service.
// Submission and decryption requests are authenticated by a recoverable
// signature header; the oracle callback is authenticated solely by its proof
// and never by a caller identity.
type Handler struct {
	controller interfaces.ProtocolController
	log        *slog.Logger
}

// NewHandler creates a new HTTP request handler for the portfolio service.
func NewHandler(controller interfaces.ProtocolController, log *slog.Logger) *Handler {
	return &Handler{
		controller: controller,
		log:        log,
	}
}

// RegisterRoutes configures the HTTP router with the portfolio service
// endpoints:
//   - POST /api/portfolio/submit - Submit an encrypted record
//   - POST /api/portfolio/{record_id}/request-decryption - Request oracle decryption
//   - POST /api/oracle/callback - Oracle decryption result entry point
//   - GET /api/public/portfolio/{record_id} - Public decrypted view
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/portfolio/submit", h.HandleSubmit)
	r.Post("/api/portfolio/{record_id}/request-decryption", h.HandleRequestDecryption)
	r.Post("/api/oracle/callback", h.HandleCallback)
	r.Get("/api/public/portfolio/{record_id}", h.HandleGetPortfolio)
}

// HandleSubmit processes authenticated portfolio submissions.
//
// URL format: POST /api/portfolio/submit
// Required headers:
//   - X-Portfolio-Signature: hex signature binding the caller to the request
//
// Optional headers:
//   - X-Portfolio-Delegate: hex address additionally allowed to request decryption
//
// Request body: JSON-encoded api.SubmitRequest
// Response: JSON-encoded api.SubmitResponse
//
// Status codes:
//   - 200 OK: record stored
//   - 400 Bad Request: malformed body or delegate header
//   - 401 Unauthorized: missing or invalid signature header
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	body, caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var delegate interfaces.Identity
	if rawDelegate := r.Header.Get(api.DelegateHeader); rawDelegate != "" {
		var err error
		delegate, err = interfaces.NewIdentityFromHex(rawDelegate)
		if err != nil {
			http.Error(w, fmt.Errorf("invalid delegate header: %w", err).Error(), http.StatusBadRequest)
			return
		}
	}

	var req api.SubmitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Errorf("invalid submit request: %w", err).Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.controller.SubmitPortfolio(r.Context(), caller, delegate, req.HoldingsCiphertext, req.ScoreCiphertext)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, api.SubmitResponse{
		RecordID:  uint64(rec.ID),
		CreatedAt: rec.CreatedAt,
	})
}

// HandleRequestDecryption issues an oracle decryption request for a record.
// Only the record's owner or its delegate may call it.
//
// URL format: POST /api/portfolio/{record_id}/request-decryption
// Required headers:
//   - X-Portfolio-Signature: hex signature binding the caller to the request
//
// Response: JSON-encoded api.RequestDecryptionResponse
//
// Status codes:
//   - 200 OK: request issued and bound
//   - 400 Bad Request: malformed record ID
//   - 401 Unauthorized: missing or invalid signature header
//   - 403 Forbidden: caller is neither owner nor delegate
//   - 404 Not Found: no such record
//   - 409 Conflict: record already finalized, or duplicate oracle request ID
func (h *Handler) HandleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	_, caller, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	recordID, err := parseRecordID(r.PathValue("record_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestID, err := h.controller.RequestDecryption(r.Context(), caller, recordID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, api.RequestDecryptionResponse{RequestID: requestID.String()})
}

// HandleCallback processes the oracle's decryption result. It is a distinct,
// unauthenticated entry point: the proof alone establishes that the cleartext
// is the genuine decryption for the named request.
//
// URL format: POST /api/oracle/callback
// Request body: JSON-encoded api.CallbackRequest
// Response: JSON-encoded api.CallbackResponse
//
// Status codes:
//   - 200 OK: record finalized
//   - 400 Bad Request: malformed body, request ID, or authenticated payload
//   - 401 Unauthorized: proof does not verify
//   - 404 Not Found: unknown request ID
//   - 409 Conflict: record already finalized
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req api.CallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Errorf("invalid callback request: %w", err).Error(), http.StatusBadRequest)
		return
	}

	requestID, err := interfaces.NewRequestIDFromHex(req.RequestID)
	if err != nil {
		http.Error(w, fmt.Errorf("invalid request ID: %w", err).Error(), http.StatusBadRequest)
		return
	}

	recordID, err := h.controller.Callback(r.Context(), requestID, req.Cleartext, req.Proof)
	if err != nil {
		h.log.Info("Callback rejected", "err", err, slog.String("requestID", requestID.String()))
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	h.writeJSON(w, api.CallbackResponse{RecordID: uint64(recordID)})
}

// HandleGetPortfolio serves the public decrypted view of a record. Unknown
// and unfinalized records return the zero triple rather than an error.
//
// URL format: GET /api/public/portfolio/{record_id}
// Response: JSON-encoded interfaces.FinalizedPortfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	recordID, err := parseRecordID(r.PathValue("record_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, h.controller.GetFinalized(r.Context(), recordID))
}

// authenticate reads the full request body and recovers the caller identity
// from the signature header. On failure it writes the error response and
// returns ok=false.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) ([]byte, interfaces.Identity, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return nil, interfaces.Identity{}, false
	}

	rawSignature := r.Header.Get(api.SignatureHeader)
	if rawSignature == "" {
		http.Error(w, fmt.Sprintf("missing %s header", api.SignatureHeader), http.StatusUnauthorized)
		return nil, interfaces.Identity{}, false
	}

	signature, err := hex.DecodeString(rawSignature)
	if err != nil {
		http.Error(w, fmt.Errorf("invalid signature encoding: %w", err).Error(), http.StatusUnauthorized)
		return nil, interfaces.Identity{}, false
	}

	caller, err := cryptoutils.RecoverRequestSigner(r.Method, r.URL.Path, body, signature)
	if err != nil {
		h.log.Debug("Failed to recover request signer", "err", err, slog.String("path", r.URL.Path))
		http.Error(w, fmt.Errorf("invalid request signature: %w", err).Error(), http.StatusUnauthorized)
		return nil, interfaces.Identity{}, false
	}

	return body, caller, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, response any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func parseRecordID(raw string) (interfaces.RecordID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record ID %q: %w", raw, err)
	}
	return interfaces.RecordID(id), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrProofInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrPayloadMalformed):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
