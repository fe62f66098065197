package ports

import (
	"context"
	"time"

	"github.com/cosmifi/gateway/core"
)

// IdentityProvider resolves a bearer token to a user
type IdentityProvider interface {
	GetUserForToken(ctx context.Context, token string) (*core.User, error)
}

// TokenIssuer mints identity tokens after a wallet proves ownership
type TokenIssuer interface {
	IssueToken(address string) (token string, tokenID string, expiresAt time.Time, err error)
}

// TokenRevoker invalidates a previously issued token
type TokenRevoker interface {
	RevokeToken(ctx context.Context, token string) (address string, tokenID string, err error)
}
