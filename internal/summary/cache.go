// Package summary condenses page text that is too long to ground a chat and
// memoizes the result for the rest of the session.
package summary

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"tswnano/internal/logger"
)

// Cache maps a caller-built key (usually the page identity) to its summary.
// Entries are never invalidated; Clear drops everything at session end.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	group   singleflight.Group
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Get returns the stored value for key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCompute returns the stored value for key or runs compute once to fill it.
// Concurrent misses on the same key share a single compute call. Failed
// computations are not stored.
func (c *Cache) GetOrCompute(key string, compute func() (string, error)) (string, error) {
	if v, ok := c.Get(key); ok {
		logger.Debug("Summary cache hit", "key", key)
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A racing caller may have stored the value between Get and Do.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		logger.Debug("Summary cache miss", "key", key)
		out, err := compute()
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.entries[key] = out
		c.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}
