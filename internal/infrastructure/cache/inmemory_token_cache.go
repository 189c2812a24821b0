package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/shipping"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryTokenCache keeps courier tokens in a process-local map. Expired
// entries are dropped lazily on read.
type InMemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]tokenEntry
	now     func() time.Time
}

// NewInMemoryTokenCache creates an empty cache
func NewInMemoryTokenCache() *InMemoryTokenCache {
	return &InMemoryTokenCache{
		entries: make(map[string]tokenEntry),
		now:     time.Now,
	}
}

// Get returns the token for key if present and unexpired
func (c *InMemoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return e.token, true, nil
}

// Set stores token under key for ttl
func (c *InMemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[key] = tokenEntry{token: token, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate removes key
func (c *InMemoryTokenCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

var _ shipping.TokenCache = (*InMemoryTokenCache)(nil)
