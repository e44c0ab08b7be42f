package llm

import (
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// cacheEntry represents a cached extraction.
type cacheEntry struct {
	expiry time.Time
	record model.PartialRecord
}

// extractionCache remembers text extractions so retyping the same input
// within the TTL does not call the model again.
type extractionCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

// newExtractionCache creates a new cache with the specified TTL.
func newExtractionCache(ttl time.Duration) *extractionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &extractionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// cacheKey scopes an input to the day it was parsed, since relative dates
// resolve differently tomorrow.
func cacheKey(input string, today time.Time) string {
	return today.Format(model.DateLayout) + "\x00" + input
}

// get retrieves a record from the cache if it exists and hasn't expired.
func (c *extractionCache) get(key string) (model.PartialRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return model.PartialRecord{}, false
	}

	return entry.record, true
}

// set stores a record and drops expired entries.
func (c *extractionCache) set(key string, record model.PartialRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{
		record: record,
		expiry: now.Add(c.ttl),
	}
}

// size returns the number of entries in the cache.
func (c *extractionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
