package fetch

import (
	"sync"
	"time"
)

// sweepEvery bounds how often Set scans for expired entries.
const sweepEvery = 256

// cacheEntry is an immutable cached response; entries are replaced on
// refresh, never mutated.
type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// ResponseCache is a TTL cache of successful response bodies keyed by
// normalized request identity. Expired entries are dropped lazily on lookup
// and swept periodically on writes. Safe for concurrent use.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	writes  int

	now func() time.Time
}

// NewResponseCache creates a cache whose entries expire ttl after being
// written. A non-positive ttl disables caching entirely.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached body for key if present and unexpired.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.body, true
}

// Set stores body under key with the cache's TTL, replacing any previous
// entry.
func (c *ResponseCache) Set(key string, body []byte) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{body: body, expiresAt: c.now().Add(c.ttl)}

	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
