package cache

import (
	"sync"
	"time"
)

// MemoryCooldown implements domain.Cooldown with a timestamp map. Used when no
// Redis address is configured and in tests.
type MemoryCooldown struct {
	mu  sync.Mutex
	ttl map[string]time.Time
	now func() time.Time
}

// NewMemoryCooldown creates the store.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{ttl: make(map[string]time.Time), now: time.Now}
}

// Reserve occupies the key for the window if it is free. Expired entries are
// dropped lazily on access.
func (c *MemoryCooldown) Reserve(key string, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.ttl[key]; ok && now.Before(until) {
		return false, nil
	}
	c.ttl[key] = now.Add(window)

	// Opportunistic sweep so the map does not grow unbounded.
	if len(c.ttl) > 4096 {
		for k, until := range c.ttl {
			if now.After(until) {
				delete(c.ttl, k)
			}
		}
	}
	return true, nil
}
