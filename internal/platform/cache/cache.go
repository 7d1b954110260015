// Package cache is the in-process TTL read cache for catalog and facility
// data. Only read-mostly reference data goes here; writable state is never
// cached beyond a request. TTLs come from config (test lists 30m, details 2h).
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// TTL is a thread-safe in-memory cache with per-entry expiry and lazy
// eviction.
type TTL struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *TTL {
	return &TTL{entries: make(map[string]entry)}
}

// Get returns the cached value if present and unexpired.
func (c *TTL) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: another goroutine may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value with its TTL.
func (c *TTL) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate drops one key.
func (c *TTL) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops everything.
func (c *TTL) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}
