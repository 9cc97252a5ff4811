// Package cache holds the in-process caches that sit in front of the mess
// database.
//
// TTLCache is a keyed store whose entries expire relative to their insertion
// time; the TTL is supplied on every read. Manager owns one TTLCache per
// dataset for the life of the process. Snapshot holds a single value that is
// recomputed in the background and swapped atomically.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/blackpanther093/manage/mealtime"
)

type entry[T any] struct {
	value      T
	insertedAt time.Time
}

// TTLCache is a thread-safe key/value store with read-time expiry.
//
// An entry is valid while now-insertedAt < ttl. Reads never refresh the
// insertion time. Expired entries are evicted lazily by Get or in bulk by
// SweepExpired.
type TTLCache[T any] struct {
	name    string
	clock   mealtime.Clock
	metrics *Metrics

	mu      sync.Mutex
	entries map[string]entry[T]
}

// Option configures a TTLCache
type Option func(*options)

type options struct {
	clock   mealtime.Clock
	metrics *Metrics
}

// WithClock overrides the clock used to stamp and age entries
func WithClock(c mealtime.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics records hits, misses and evictions under the cache name
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewTTLCache creates an empty cache. name labels its metrics.
func NewTTLCache[T any](name string, opts ...Option) *TTLCache[T] {
	o := options{clock: mealtime.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = mealtime.SystemClock
	}
	return &TTLCache[T]{
		name:    name,
		clock:   o.clock,
		metrics: o.metrics,
		entries: make(map[string]entry[T]),
	}
}

// Name returns the cache name
func (c *TTLCache[T]) Name() string {
	return c.name
}

// Get returns the value stored under key if it is younger than ttl.
// An expired entry is removed.
func (c *TTLCache[T]) Get(key string, ttl time.Duration) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		c.metrics.miss(c.name)
		return zero, false
	}
	if c.clock.Now().Sub(e.insertedAt) >= ttl {
		delete(c.entries, key)
		c.metrics.evict(c.name, 1)
		c.metrics.miss(c.name)
		return zero, false
	}
	c.metrics.hit(c.name)
	return e.value, true
}

// Set stores value under key, stamping the current time
func (c *TTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, insertedAt: c.clock.Now()}
}

// Clear removes the given keys, or every entry when called without keys
func (c *TTLCache[T]) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		c.entries = make(map[string]entry[T])
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// ClearFunc removes every key for which match returns true and reports how
// many were removed
func (c *TTLCache[T]) ClearFunc(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// SweepExpired removes every entry at least ttl old and returns the count
func (c *TTLCache[T]) SweepExpired(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) >= ttl {
			delete(c.entries, k)
			n++
		}
	}
	c.metrics.evict(c.name, n)
	return n
}

// Len returns the number of stored entries, expired or not
func (c *TTLCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the stored keys in sorted order
func (c *TTLCache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
