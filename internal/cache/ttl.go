// Package cache provides the in-process TTL cache shared by all requests and
// an optional Redis mirror for best-effort write-back of computed results.
package cache

import (
	"strings"
	"sync"
	"time"
)

// entry is immutable once stored; Set always stores a fresh entry.
type entry struct {
	value     any
	expiresAt time.Time
}

// TTL is a concurrency-safe key/value store with per-entry expiry. Reads
// never block on other computations: a miss is reported immediately and the
// caller recomputes.
type TTL struct {
	entries sync.Map // string -> *entry
	now     func() time.Time
}

// Option configures a TTL cache.
type Option func(*TTL)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTL) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *TTL {
	c := &TTL{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key. An entry is present only while
// now < insertedAt + ttl; an expired entry is evicted and reported as a miss.
func (c *TTL) Get(key string) (any, bool) {
	raw, ok := c.entries.Load(key)
	if !ok {
		recordMiss(key)
		return nil, false
	}
	e := raw.(*entry)
	if !c.now().Before(e.expiresAt) {
		// Only remove this exact entry; a concurrent Set may have replaced it.
		if c.entries.CompareAndDelete(key, e) {
			recordEviction(key)
		}
		recordMiss(key)
		return nil, false
	}
	recordHit(key)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing and
// drops any existing entry.
func (c *TTL) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.entries.Delete(key)
		return
	}
	c.entries.Store(key, &entry{value: value, expiresAt: c.now().Add(ttl)})
}

// Delete removes key.
func (c *TTL) Delete(key string) {
	c.entries.Delete(key)
}

// DeletePrefix removes every key starting with prefix.
func (c *TTL) DeletePrefix(prefix string) int {
	removed := 0
	c.entries.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			c.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// InvalidateAll drops every entry.
func (c *TTL) InvalidateAll() {
	c.entries.Clear()
}

// Len counts live and not-yet-evicted entries.
func (c *TTL) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// GetAs is Get with a type assertion. A value of the wrong type is a miss.
func GetAs[T any](c *TTL, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
