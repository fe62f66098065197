package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/ports"
)

const userPath = "/auth/v1/user"

// SupabaseProvider resolves bearer tokens through a Supabase Auth endpoint
type SupabaseProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSupabaseProvider creates a provider for the project at baseURL.
// client may be nil.
func NewSupabaseProvider(baseURL, apiKey string, client *http.Client) ports.IdentityProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SupabaseProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type supabaseUser struct {
	ID           string `json:"id"`
	UserMetadata struct {
		WalletAddress string `json:"wallet_address"`
	} `json:"user_metadata"`
}

// GetUserForToken fetches the user owning token
func (p *SupabaseProvider) GetUserForToken(ctx context.Context, token string) (*core.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrInvalidToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("building user request: %w", err)
	}
	req.Header.Set(core.HeaderAuthorization, core.BearerPrefix+token)
	req.Header.Set(core.HeaderAPIKey, p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, core.ErrInvalidToken
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", core.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", core.ErrInvalidToken, resp.StatusCode)
	}

	var u supabaseUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: decoding user: %v", core.ErrProviderUnavailable, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: no user", core.ErrInvalidToken)
	}
	if u.UserMetadata.WalletAddress == "" {
		return nil, fmt.Errorf("%w: user %s has no wallet_address", core.ErrInvalidToken, u.ID)
	}

	return &core.User{
		ID:            u.ID,
		WalletAddress: u.UserMetadata.WalletAddress,
	}, nil
}
