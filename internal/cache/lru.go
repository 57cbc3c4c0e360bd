// Package cache provides the bounded caches shared across render frames:
// protocol payloads, sixel palettes and decoded image bytes.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the capacity used when a cache is created with size <= 0.
const DefaultSize = 50

// LRU is a size-bounded least-recently-used cache with hit statistics.
// It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	name  string
	cache *lru.Cache[K, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](name string, size int) *LRU[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	c := &LRU[K, V]{name: name}
	// NewWithEvict only fails for a non-positive size.
	c.cache, _ = lru.NewWithEvict[K, V](size, func(K, V) {
		c.evictions.Add(1)
	})
	return c
}

// Name returns the cache name used in statistics.
func (c *LRU[K, V]) Name() string {
	return c.name
}

// Get returns the value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Peek returns the value for key without updating recency or statistics.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	return c.cache.Peek(key)
}

// Add stores value under key, evicting the oldest entry when full.
// It reports whether an eviction happened.
func (c *LRU[K, V]) Add(key K, value V) bool {
	return c.cache.Add(key, value)
}

// Remove deletes key.
func (c *LRU[K, V]) Remove(key K) bool {
	return c.cache.Remove(key)
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	return c.cache.Len()
}

// Purge removes every entry. Evictions caused by a purge are counted.
func (c *LRU[K, V]) Purge() {
	c.cache.Purge()
}

// Resize changes the capacity, evicting the oldest entries if needed.
func (c *LRU[K, V]) Resize(size int) {
	if size <= 0 {
		size = DefaultSize
	}
	c.cache.Resize(size)
}

// Stats holds cache statistics.
type Stats struct {
	Name      string
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Name:      c.name,
		Entries:   c.cache.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
