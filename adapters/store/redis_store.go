package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cosmifi/gateway/ports"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "cosmifi:revoked:"

// revokeScript only ever extends a revocation: a shorter ttl than the one
// already on the key is ignored.
var revokeScript = redis.NewScript(`
local remaining = redis.call("PTTL", KEYS[1])
local ttl = tonumber(ARGV[1])
if remaining < ttl then
	redis.call("SET", KEYS[1], "1", "PX", ttl)
	return 1
end
return 0
`)

// RedisStore shares revocations between gateway instances. Keys expire with
// the token so nothing needs sweeping.
type RedisStore struct {
	client redis.UniversalClient
}

var _ ports.RevocationStore = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func revokedKey(tokenID string) string {
	return revokedKeyPrefix + tokenID
}

// Revoke records tokenID for ttl. A later deadline already on record is kept.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	if err := revokeScript.Run(ctx, s.client, []string{revokedKey(tokenID)}, ms).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", tokenID, err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", tokenID, err)
	}
	return n > 0, nil
}
