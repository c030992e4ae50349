package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// DecryptPath is the decryption-request endpoint served by the oracle.
const DecryptPath = "/api/oracle/decrypt"

// DecryptRequest is the wire format of a decryption request. Handles are
// opaque and transported base64-encoded; the callback URL tells the oracle
// where to deliver the proof-bearing result.
type DecryptRequest struct {
	Handles     [][]byte `json:"handles"`
	CallbackURL string   `json:"callback_url,omitempty"`
}

// DecryptResponse carries the request identifier used to correlate the
// asynchronous callback.
type DecryptResponse struct {
	RequestID string `json:"request_id"`
}

// Client implements interfaces.DecryptionOracle over HTTP.
type Client struct {
	// Endpoint is the oracle base URL, e.g. http://oracle.internal:9000.
	Endpoint string

	// CallbackURL is where the oracle should deliver results, e.g.
	// http://ledger.internal:8080/api/oracle/callback.
	CallbackURL string

	// Client is the HTTP client to use; http.DefaultClient when nil.
	Client *http.Client
}

// RequestDecryption posts the ordered ciphertext handles to the oracle and
// returns the fresh request identifier. The call performs no verification.
func (c *Client) RequestDecryption(ctx context.Context, handles []interfaces.CiphertextHandle) (interfaces.RequestID, error) {
	rawHandles := make([][]byte, len(handles))
	for i, h := range handles {
		rawHandles[i] = h
	}

	body, err := json.Marshal(DecryptRequest{Handles: rawHandles, CallbackURL: c.CallbackURL})
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("could not encode decryption request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+DecryptPath, bytes.NewReader(body))
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("could not request oracle: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("could not read oracle response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return interfaces.RequestID{}, fmt.Errorf("oracle returned %d: %s", resp.StatusCode, string(respBody))
	}

	var decryptResp DecryptResponse
	if err := json.Unmarshal(respBody, &decryptResp); err != nil {
		return interfaces.RequestID{}, fmt.Errorf("could not parse oracle response: %w", err)
	}

	requestID, err := interfaces.NewRequestIDFromHex(decryptResp.RequestID)
	if err != nil {
		return interfaces.RequestID{}, fmt.Errorf("oracle returned an invalid request id: %w", err)
	}
	if requestID.IsZero() {
		return interfaces.RequestID{}, fmt.Errorf("oracle returned the reserved zero request id")
	}
	return requestID, nil
}
