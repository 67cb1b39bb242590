package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTLRoundTrip(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("stats:courses:snapshot", 42, time.Minute)
	v, ok := c.Get("stats:courses:snapshot")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("stats:courses:snapshot")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("stats:courses:snapshot")
	assert.False(t, ok, "entry must be absent exactly at insertedAt+ttl")
	assert.Zero(t, c.Len(), "expired read must evict the entry")
}

func TestTTLSetReplacesEntry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", "old", time.Second)
	clock.Advance(500 * time.Millisecond)
	c.Set("k", "new", time.Minute)
	clock.Advance(time.Second)

	v, ok := GetAs[string](c, "k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestTTLNonPositiveTTL(t *testing.T) {
	c := New()
	c.Set("k", 1, time.Minute)
	c.Set("k", 2, 0)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLInvalidation(t *testing.T) {
	c := New()
	c.Set("stats:a", 1, time.Minute)
	c.Set("stats:b", 2, time.Minute)
	c.Set("membership:courses:T1", 3, time.Minute)

	assert.Equal(t, 2, c.DeletePrefix("stats:"))
	_, ok := c.Get("membership:courses:T1")
	assert.True(t, ok)

	c.InvalidateAll()
	assert.Zero(t, c.Len())
}

func TestGetAsWrongType(t *testing.T) {
	c := New()
	c.Set("k", 7, time.Minute)
	_, ok := GetAs[string](c, "k")
	assert.False(t, ok)
}

func TestTTLConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("stats:%d", i%16)
				c.Set(key, w, time.Millisecond*time.Duration(i%3))
				c.Get(key)
				if i%100 == 0 {
					clock.Advance(time.Millisecond)
				}
				if i%250 == 0 {
					c.InvalidateAll()
				}
			}
		}(w)
	}
	wg.Wait()

	c.Set("final", "v", time.Hour)
	v, ok := c.Get("final")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "stats", kindOf("stats:courses:snapshot"))
	assert.Equal(t, "plain", kindOf("plain"))
}
