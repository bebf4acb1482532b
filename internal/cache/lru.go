// Package cache implements the Bounded LRU and the Cache Registry: a
// size-bounded, TTL-aware key/value store and a process-wide registry of
// named instances of it that support a uniform clear/stats/pressure-eviction
// contract.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Stats reports a cache's hit count, miss count, current size, capacity,
// and eviction count.
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	Capacity  int
	Evictions int64
	Expirations int64
}

type entry[V any] struct {
	value   V
	expiry  time.Time // zero means no TTL
}

// TTLCache is a size-bounded key/value store with optional per-entry TTL,
// built over hashicorp/golang-lru/v2's capacity-bounded core. It never
// panics for normal operation; concurrent get/put are safe via one mutex,
// since lock contention here is never the bottleneck relative to the
// network calls this cache sits in front of.
type TTLCache[K comparable, V any] struct {
	mu              sync.Mutex
	name            string
	inner           *lru.Cache[K, entry[V]]
	capacity        int
	evictionPercent int
	hits            int64
	misses          int64
	evictions       int64
	expirations     int64
}

// NewTTLCache builds a cache of the given capacity. golang-lru/v2 evicts
// one entry at a time on Add when full; evictionPercent instead governs
// EvictPercent, a separate batch-eviction operation that runs only when a
// caller invokes it, distinct from ordinary capacity overflow (handled
// per-entry by the underlying library).
func NewTTLCache[K comparable, V any](name string, capacity int, evictionPercent int) *TTLCache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	inner, err := lru.NewWithEvict[K, entry[V]](capacity, nil)
	if err != nil {
		// capacity is always > 0 here, so NewWithEvict cannot fail; keep the
		// contract "never raises for normal operation" airtight regardless.
		inner, _ = lru.New[K, entry[V]](1)
	}
	return &TTLCache[K, V]{
		name:            name,
		inner:           inner,
		capacity:        capacity,
		evictionPercent: evictionPercent,
	}
}

// Get returns the stored value if present and not expired, updating
// recency; otherwise reports a miss. An expired hit counts as a miss and
// is removed lazily.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.inner.Get(key)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if !e.expiry.IsZero() && time.Now().After(e.expiry) {
		c.inner.Remove(key)
		c.misses++
		c.expirations++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Put inserts or updates a key. ttl of zero means no expiry.
func (c *TTLCache[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}
	evicted := c.inner.Add(key, entry[V]{value: value, expiry: expiry})
	if evicted {
		c.evictions++
	}
}

// Remove deletes a key if present.
func (c *TTLCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
}

// Clear empties the cache and returns the number of entries removed.
func (c *TTLCache[K, V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.inner.Len()
	c.inner.Purge()
	return n
}

// Size returns the current number of entries.
func (c *TTLCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// StatsSnapshot returns the current hit/miss/size/capacity/eviction counts.
func (c *TTLCache[K, V]) StatsSnapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Size:        c.inner.Len(),
		Capacity:    c.capacity,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}

// EvictPercent removes roughly evictionPercent% of the least-recently-used
// entries (minimum one). It is part of the Handle interface, but
// Registry.PressureClear does not call it: pressure clearing empties whole
// caches via Clear.
func (c *TTLCache[K, V]) EvictPercent() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.inner.Len()
	if size == 0 {
		return 0
	}
	n := size * c.evictionPercent / 100
	if n < 1 {
		n = 1
	}
	removed := 0
	for i := 0; i < n; i++ {
		if _, _, ok := c.inner.RemoveOldest(); !ok {
			break
		}
		removed++
	}
	c.evictions += int64(removed)
	return removed
}

// Name returns the cache's registered name.
func (c *TTLCache[K, V]) Name() string { return c.name }
