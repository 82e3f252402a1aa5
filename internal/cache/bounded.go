package cache

import (
	"sync"
	"time"
)

// BoundedCache is an in-process cache with a hard entry cap. When the
// cap is reached, the oldest tenth of entries (at least one) is evicted
// in a single batch so inserts stay cheap under sustained load. Expiry
// is checked synchronously on read; there is no background sweeper.
type BoundedCache struct {
	mu         sync.Mutex
	entries    map[string]boundedEntry
	order      []string // insertion order, oldest first; may hold stale keys
	maxEntries int
	ttl        time.Duration
}

type boundedEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewBoundedCache creates a bounded cache holding at most maxEntries
// live entries with the given default TTL.
func NewBoundedCache(maxEntries int, ttl time.Duration) *BoundedCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &BoundedCache{
		entries:    make(map[string]boundedEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get retrieves a value. Expired entries are removed and reported as
// misses.
func (c *BoundedCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

// Set stores a value, evicting the oldest batch of entries first when
// the cache is full. A zero TTL uses the cache default.
func (c *BoundedCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = boundedEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}

	if len(c.order) > 2*c.maxEntries {
		c.compactOrder()
	}
	return nil
}

// Delete removes a value
func (c *BoundedCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear removes all values
func (c *BoundedCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]boundedEntry)
	c.order = nil
	return nil
}

// Len returns the number of live entries.
func (c *BoundedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest drops the oldest tenth of live entries, at least one.
// Caller holds the lock.
func (c *BoundedCache) evictOldest() {
	batch := c.maxEntries / 10
	if batch < 1 {
		batch = 1
	}

	kept := c.order[:0]
	for _, key := range c.order {
		if _, live := c.entries[key]; !live {
			continue
		}
		if batch > 0 {
			delete(c.entries, key)
			batch--
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

// compactOrder removes stale keys accumulated by Delete and expiry.
// Caller holds the lock.
func (c *BoundedCache) compactOrder() {
	kept := c.order[:0]
	for _, key := range c.order {
		if _, live := c.entries[key]; live {
			kept = append(kept, key)
		}
	}
	c.order = kept
}
