package ports

import (
	"context"
	"time"
)

// RevocationStore remembers logged-out token ids until the token would
// have expired on its own.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
