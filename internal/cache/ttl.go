// Package cache holds the in-process and redis-backed result caches.
package cache

import (
	"sync"
	"time"

	"github.com/smallbiznis/geoatlas/internal/clock"
)

const DefaultMaxEntries = 10_000

// Cache is a key/value cache with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Len() int
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a bounded in-memory Cache. A full cache evicts expired entries
// first and then arbitrary ones.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	items      map[K]ttlEntry[V]
	clock      clock.Clock
	maxEntries int
}

func NewTTLCache[K comparable, V any](c clock.Clock, maxEntries int) *TTLCache[K, V] {
	if c == nil {
		c = clock.Real()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &TTLCache[K, V]{
		items:      make(map[K]ttlEntry[V]),
		clock:      c,
		maxEntries: maxEntries,
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.items, key)
		return zero, false
	}
	return entry.value, true
}

// Set stores value for ttl. A non-positive ttl is a no-op.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evict(now)
	}
	c.items[key] = ttlEntry[V]{value: value, expiresAt: now.Add(ttl)}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[K, V]) evict(now time.Time) {
	for key, entry := range c.items {
		if !now.Before(entry.expiresAt) {
			delete(c.items, key)
		}
	}
	for key := range c.items {
		if len(c.items) < c.maxEntries {
			return
		}
		delete(c.items, key)
	}
}
