package portfoliohandler

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ruteri/confidential-portfolio-ledger/api"
	"github.com/ruteri/confidential-portfolio-ledger/cryptoutils"
	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// Client is a signing HTTP client for the portfolio service. Every mutating
// request carries the caller's identity signature header computed from the
// client's key.
type Client struct {
	// ServerURL is the base URL of the portfolio server, without trailing slash.
	ServerURL string

	// Key signs requests; its derived address is the caller identity.
	Key *ecdsa.PrivateKey

	// Client is the underlying HTTP client. Defaults to http.DefaultClient.
	Client *http.Client
}

// Identity returns the caller identity derived from the client's signing key.
func (c *Client) Identity() interfaces.Identity {
	return cryptoutils.SignerIdentity(c.Key)
}

// SubmitPortfolio submits an encrypted record, optionally naming a delegate
// allowed to request its decryption.
func (c *Client) SubmitPortfolio(delegate interfaces.Identity, holdings, score interfaces.CiphertextHandle) (*api.SubmitResponse, error) {
	body, err := json.Marshal(api.SubmitRequest{
		HoldingsCiphertext: holdings,
		ScoreCiphertext:    score,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode submit request: %w", err)
	}

	var headers http.Header
	if !delegate.IsZero() {
		headers = http.Header{api.DelegateHeader: []string{delegate.String()}}
	}

	var response api.SubmitResponse
	if err := c.doSigned(http.MethodPost, "/api/portfolio/submit", body, headers, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// RequestDecryption asks the server to issue an oracle decryption request for
// the record. The caller must be the record's owner or delegate.
func (c *Client) RequestDecryption(id interfaces.RecordID) (interfaces.RequestID, error) {
	var response api.RequestDecryptionResponse
	path := fmt.Sprintf("/api/portfolio/%d/request-decryption", id)
	if err := c.doSigned(http.MethodPost, path, nil, nil, &response); err != nil {
		return interfaces.RequestID{}, err
	}
	return interfaces.NewRequestIDFromHex(response.RequestID)
}

// GetPortfolio reads the public decrypted view of a record.
func (c *Client) GetPortfolio(id interfaces.RecordID) (*interfaces.FinalizedPortfolio, error) {
	resp, err := c.httpClient().Get(fmt.Sprintf("%s/api/public/portfolio/%d", c.ServerURL, id))
	if err != nil {
		return nil, fmt.Errorf("could not request portfolio: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read portfolio response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portfolio server returned %d: %s", resp.StatusCode, string(body))
	}

	var portfolio interfaces.FinalizedPortfolio
	if err := json.Unmarshal(body, &portfolio); err != nil {
		return nil, fmt.Errorf("could not parse portfolio response: %w", err)
	}
	return &portfolio, nil
}

// Callback posts a decryption result to the server's oracle callback
// endpoint. Used by the oracle side; it carries no identity header, the proof
// authenticates it.
func Callback(client *http.Client, serverURL string, requestID interfaces.RequestID, cleartext, proof []byte) (*api.CallbackResponse, error) {
	body, err := json.Marshal(api.CallbackRequest{
		RequestID: requestID.String(),
		Cleartext: cleartext,
		Proof:     proof,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode callback request: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(serverURL+"/api/oracle/callback", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not post callback: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read callback response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portfolio server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var response api.CallbackResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("could not parse callback response: %w", err)
	}
	return &response, nil
}

func (c *Client) doSigned(method, path string, body []byte, headers http.Header, response any) error {
	signature, err := cryptoutils.SignRequest(c.Key, method, path, body)
	if err != nil {
		return fmt.Errorf("could not sign request: %w", err)
	}

	req, err := http.NewRequest(method, c.ServerURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.SignatureHeader, hex.EncodeToString(signature))
	for name, values := range headers {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("could not request portfolio server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portfolio server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return json.Unmarshal(respBody, response)
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}
