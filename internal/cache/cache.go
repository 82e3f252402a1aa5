package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Pruner is implemented by caches that can drop expired entries in bulk.
type Pruner interface {
	Prune() (int, error)
}

// Key generates a cache key from one or more content parts. Parts are
// joined with a separator before hashing so ("ab","c") and ("a","bc")
// produce distinct keys.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "scholia:v1:" + hex.EncodeToString(hash[:])
}
