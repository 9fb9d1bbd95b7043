package scoring

import (
	"sync"
	"time"

	"github.com/liamcoop/ivfsuccess/formulas"
)

type cacheEntry struct {
	rec      formulas.CoefficientRecord
	cachedAt time.Time
}

// InMemoryRecordCache is a map-backed RecordCache.
// Thread-safe for concurrent access.
type InMemoryRecordCache struct {
	entries map[formulas.SelectorKey]cacheEntry
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryRecordCache creates an empty cache
func NewInMemoryRecordCache(config CacheConfig) *InMemoryRecordCache {
	return &InMemoryRecordCache{
		entries: make(map[formulas.SelectorKey]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

func (c *InMemoryRecordCache) expired(e cacheEntry) bool {
	return c.config.TTL > 0 && c.now().Sub(e.cachedAt) > c.config.TTL
}

// Get retrieves a cached record.
// Records are values so callers cannot modify the cached copy.
func (c *InMemoryRecordCache) Get(key formulas.SelectorKey) (formulas.CoefficientRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return formulas.CoefficientRecord{}, false
	}
	return e.rec, true
}

// Set stores a record
func (c *InMemoryRecordCache) Set(key formulas.SelectorKey, rec formulas.CoefficientRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{rec: rec, cachedAt: c.now()}
}

// Invalidate clears the cache
func (c *InMemoryRecordCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[formulas.SelectorKey]cacheEntry)
}

// Len counts entries that have not expired
func (c *InMemoryRecordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}
