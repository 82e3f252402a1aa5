package cache

import "time"

// LayeredCache chains a fast tier in front of a durable one. Reads hit
// the fast tier first and promote on a slow-tier hit.
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache creates a layered cache over the given tiers.
func NewLayeredCache(fast, slow Cache) *LayeredCache {
	return &LayeredCache{fast: fast, slow: slow}
}

// Get retrieves a value, checking the fast tier before the slow one
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.fast.Get(key); found {
		return val, true
	}

	if val, found := c.slow.Get(key); found {
		// Promote with the fast tier's default TTL
		c.fast.Set(key, val, 0)
		return val, true
	}

	return nil, false
}

// Set stores a value in both tiers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.slow.Set(key, value, ttl)
}

// Delete removes a value from both tiers
func (c *LayeredCache) Delete(key string) error {
	c.fast.Delete(key)
	c.slow.Delete(key)
	return nil
}

// Clear removes all values from both tiers
func (c *LayeredCache) Clear() error {
	c.fast.Clear()
	c.slow.Clear()
	return nil
}

// Prune drops expired entries from any tier that supports pruning.
func (c *LayeredCache) Prune() (int, error) {
	total := 0
	for _, tier := range []Cache{c.fast, c.slow} {
		p, ok := tier.(Pruner)
		if !ok {
			continue
		}
		n, err := p.Prune()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
