package store

import (
	"context"
	"sync"
	"time"

	"github.com/cosmifi/gateway/ports"
)

// MemoryStore keeps revocations in process memory. It is only correct for a
// single gateway instance; use RedisStore when running more than one.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

var _ ports.RevocationStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke records tokenID until now+ttl. A later deadline already on record is kept.
func (s *MemoryStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	until := now.Add(ttl)
	if current, ok := s.revoked[tokenID]; ok && current.After(until) {
		return nil
	}
	s.revoked[tokenID] = until

	return nil
}

func (s *MemoryStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}

	return true, nil
}

// Len reports how many revocations are held, expired ones included until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.revoked)
}

// sweep drops expired records. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
		}
	}
}
