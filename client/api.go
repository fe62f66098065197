package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/cosmifi/gateway/core"
)

const maxResponseBytes = 4 << 20

// APIError is a non-success response from the gateway
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Session is returned by a successful wallet verification
type Session struct {
	Token         string    `json:"token"`
	WalletAddress string    `json:"walletAddress"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Identity is the principal the gateway authenticated a request as
type Identity struct {
	WalletAddress string `json:"walletAddress"`
	Source        string `json:"source"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Status string          `json:"status"`
}

// APIClient calls the gateway and unwraps its response envelope
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAPIClient creates a client for the gateway at baseURL. client may be nil.
func NewAPIClient(baseURL, apiKey string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// Do sends body as JSON with creds attached and decodes the envelope's data into out.
// out may be nil.
func (c *APIClient) Do(ctx context.Context, method, path string, creds core.Headers, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set(core.HeaderAPIKey, c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	creds.Apply(req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("invalid response type: expected JSON, got %q", mediaType),
		}
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "invalid JSON response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status != "success" {
		msg := env.Error
		if msg == "" {
			msg = "request failed"
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// VerifyWallet exchanges a signed message for an identity token
func (c *APIClient) VerifyWallet(ctx context.Context, address, signature, message string) (*Session, error) {
	req := map[string]string{
		"walletAddress": address,
		"signature":     signature,
		"message":       message,
	}

	var session Session
	if err := c.Do(ctx, http.MethodPost, "/auth/verify-wallet", core.Headers{}, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Me returns the identity creds authenticate as
func (c *APIClient) Me(ctx context.Context, creds core.Headers) (*Identity, error) {
	var id Identity
	if err := c.Do(ctx, http.MethodGet, "/api/me", creds, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Logout revokes an identity token
func (c *APIClient) Logout(ctx context.Context, token string) error {
	creds := core.Headers{Authorization: core.BearerPrefix + token}
	return c.Do(ctx, http.MethodPost, "/auth/logout", creds, nil, nil)
}
