package loginattempts

import (
	"context"
	"sync"
	"time"
)

// CacheKeyPrefix namespaces attempt-list keys in the shared cache. The value
// is shared with the previous generation of the service; changing it orphans
// live entries.
const CacheKeyPrefix = "device/loginAttempt/getList:"

// CacheKey returns the cache key for a user's attempt list
func CacheKey(userID string) string {
	return CacheKeyPrefix + userID
}

// AttemptCache holds the precomputed, fully sorted attempt list per user.
// Entries expire on their TTL; Delete exists for explicit invalidation after
// a ledger write.
type AttemptCache interface {
	Get(ctx context.Context, userID string) ([]LoginAttempt, bool, error)
	Set(ctx context.Context, userID string, attempts []LoginAttempt, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

// Invalidator adapts an AttemptCache to the trust service's invalidation hook
type Invalidator struct {
	cache AttemptCache
}

// NewInvalidator creates an invalidator over the given cache
func NewInvalidator(cache AttemptCache) *Invalidator {
	return &Invalidator{cache: cache}
}

// Invalidate drops the cached attempt list for a user
func (i *Invalidator) Invalidate(ctx context.Context, userID string) error {
	return i.cache.Delete(ctx, userID)
}

type inMemCacheEntry struct {
	attempts  []LoginAttempt
	expiresAt time.Time
}

// InMemAttemptCache implements AttemptCache using an in-memory map with TTL
type InMemAttemptCache struct {
	entries map[string]inMemCacheEntry
	mu      sync.Mutex
}

// NewInMemAttemptCache creates a new in-memory attempt cache
func NewInMemAttemptCache() *InMemAttemptCache {
	return &InMemAttemptCache{
		entries: make(map[string]inMemCacheEntry),
	}
}

func (c *InMemAttemptCache) Get(ctx context.Context, userID string) ([]LoginAttempt, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[userID]
	if !exists {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, userID)
		return nil, false, nil
	}
	return append([]LoginAttempt(nil), entry.attempts...), true, nil
}

func (c *InMemAttemptCache) Set(ctx context.Context, userID string, attempts []LoginAttempt, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[userID] = inMemCacheEntry{
		attempts:  append([]LoginAttempt(nil), attempts...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (c *InMemAttemptCache) Delete(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
	return nil
}

// Len returns the number of live entries, expired ones included until read
func (c *InMemAttemptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
