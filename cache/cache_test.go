package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.August, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLCache_SetThenGet(t *testing.T) {
	c := NewTTLCache[string]("test", WithClock(newFakeClock()))
	c.Set("k", "v")

	got, ok := c.Get("k", time.Minute)
	if !ok || got != "v" {
		t.Fatalf("Get = (%q, %v), want (\"v\", true)", got, ok)
	}
}

func TestTTLCache_MissingKey(t *testing.T) {
	c := NewTTLCache[int]("test")
	if v, ok := c.Get("nope", time.Hour); ok || v != 0 {
		t.Errorf("Get on empty cache = (%d, %v), want (0, false)", v, ok)
	}
}

func TestTTLCache_ExpiresAtBoundary(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[string]("test", WithClock(clock))
	c.Set("k", "v")

	clock.Advance(time.Minute - time.Nanosecond)
	if _, ok := c.Get("k", time.Minute); !ok {
		t.Fatal("entry should be live just before ttl")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := c.Get("k", time.Minute); ok {
		t.Fatal("entry should be expired when elapsed == ttl")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted on read, Len = %d", c.Len())
	}
}

func TestTTLCache_ReadDoesNotRefresh(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[string]("test", WithClock(clock))
	c.Set("k", "v")

	clock.Advance(30 * time.Second)
	first, ok1 := c.Get("k", time.Minute)
	second, ok2 := c.Get("k", time.Minute)
	if !ok1 || !ok2 || first != second {
		t.Fatalf("repeated reads differ: (%q,%v) (%q,%v)", first, ok1, second, ok2)
	}

	clock.Advance(30 * time.Second)
	if _, ok := c.Get("k", time.Minute); ok {
		t.Fatal("reads must not extend the entry lifetime")
	}
}

func TestTTLCache_TTLChosenByReader(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[string]("test", WithClock(clock))
	c.Set("k", "v")
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("k", time.Hour); !ok {
		t.Error("entry should be live for a one hour reader")
	}
	if _, ok := c.Get("k", time.Minute); ok {
		t.Error("entry should be stale for a one minute reader")
	}
}

func TestTTLCache_SetOverwritesAndRestamps(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[string]("test", WithClock(clock))
	c.Set("k", "old")
	clock.Advance(50 * time.Second)
	c.Set("k", "new")
	clock.Advance(50 * time.Second)

	got, ok := c.Get("k", time.Minute)
	if !ok || got != "new" {
		t.Errorf("Get = (%q, %v), want (\"new\", true)", got, ok)
	}
}

func TestTTLCache_Clear(t *testing.T) {
	c := NewTTLCache[int]("test")
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Clear("a", "missing")
	if _, ok := c.Get("a", time.Hour); ok {
		t.Error("a should be cleared")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Clear() should empty the cache, Len = %d", c.Len())
	}
}

func TestTTLCache_ClearFunc(t *testing.T) {
	c := NewTTLCache[int]("test")
	c.Set("feedback:mess1:a", 1)
	c.Set("feedback:mess1:b", 2)
	c.Set("feedback:mess2:a", 3)

	n := c.ClearFunc(func(k string) bool { return strings.HasPrefix(k, "feedback:mess1:") })
	if n != 2 {
		t.Errorf("ClearFunc removed %d, want 2", n)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "feedback:mess2:a" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestTTLCache_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[int]("test", WithClock(clock))
	c.Set("old1", 1)
	c.Set("old2", 2)
	clock.Advance(time.Hour)
	c.Set("fresh", 3)

	if n := c.SweepExpired(time.Hour); n != 2 {
		t.Errorf("SweepExpired = %d, want 2", n)
	}
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "fresh" {
		t.Errorf("Keys after sweep = %v, want [fresh]", keys)
	}
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int]("test")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set("k", i)
				c.Get("k", time.Hour)
				if j%50 == 0 {
					c.Clear()
				}
				c.SweepExpired(time.Hour)
			}
		}(i)
	}
	wg.Wait()
}

func TestTTLCache_Metrics(t *testing.T) {
	clock := newFakeClock()
	m := NewMetrics(prometheus.NewRegistry())
	c := NewTTLCache[int]("menu", WithClock(clock), WithMetrics(m))

	c.Get("k", time.Minute)
	c.Set("k", 1)
	c.Get("k", time.Minute)
	c.Get("k", time.Minute)
	clock.Advance(time.Minute)
	c.Get("k", time.Minute)

	if got := testutil.ToFloat64(m.hits.WithLabelValues("menu")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.misses.WithLabelValues("menu")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.evictions.WithLabelValues("menu")); got != 1 {
		t.Errorf("evictions = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.hit("x")
	m.miss("x")
	m.evict("x", 3)
}
