package client

import (
	"sync"
	"time"
)

const (
	// CacheDuration is how long a signature is reused before prompting again
	CacheDuration = 30 * time.Second
	// RetryCooldown is how long signing is refused after a failed attempt
	RetryCooldown = 5 * time.Second
)

// Clock abstracts time for the cache
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CachedSignature is a signature the wallet produced at Timestamp
type CachedSignature struct {
	Signature string
	Timestamp time.Time
}

// CooldownRecord tracks failed signing attempts for one address
type CooldownRecord struct {
	FailureCount int
	LastAttempt  time.Time
}

// SignatureCache holds per-address signatures and cooldowns, keyed by the
// address exactly as signed since it is part of the message. The mutex only
// keeps the maps consistent; it does not coalesce concurrent misses, so two
// callers may both prompt the wallet. Last write wins.
type SignatureCache struct {
	clock Clock

	mu         sync.Mutex
	signatures map[string]CachedSignature
	cooldowns  map[string]CooldownRecord
}

// NewSignatureCache creates an empty cache. A nil clock uses SystemClock.
func NewSignatureCache(clock Clock) *SignatureCache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SignatureCache{
		clock:      clock,
		signatures: make(map[string]CachedSignature),
		cooldowns:  make(map[string]CooldownRecord),
	}
}

// Now returns the cache clock's current time
func (c *SignatureCache) Now() time.Time {
	return c.clock.Now()
}

// Signature returns the cached signature for address if it is younger than CacheDuration
func (c *SignatureCache) Signature(address string) (CachedSignature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.signatures[address]
	if !ok {
		return CachedSignature{}, false
	}
	if c.clock.Now().Sub(cached.Timestamp) >= CacheDuration {
		delete(c.signatures, address)
		return CachedSignature{}, false
	}
	return cached, true
}

// StoreSignature caches signature and clears any cooldown for address
func (c *SignatureCache) StoreSignature(address, signature string, timestamp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signatures[address] = CachedSignature{Signature: signature, Timestamp: timestamp}
	delete(c.cooldowns, address)
}

// InCooldown reports whether a failed attempt for address happened within RetryCooldown
func (c *SignatureCache) InCooldown(address string) (CooldownRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.cooldowns[address]
	if !ok {
		return CooldownRecord{}, false
	}
	return record, c.clock.Now().Sub(record.LastAttempt) < RetryCooldown
}

// RecordFailure counts a failed attempt started at attempt
func (c *SignatureCache) RecordFailure(address string, attempt time.Time) CooldownRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := c.cooldowns[address]
	record.FailureCount++
	record.LastAttempt = attempt
	c.cooldowns[address] = record
	return record
}

// Forget drops everything cached for address, e.g. after the server rejects a signature
func (c *SignatureCache) Forget(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.signatures, address)
	delete(c.cooldowns, address)
}
