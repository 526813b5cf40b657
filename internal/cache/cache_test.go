package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTL_GetWithinAndPastExpiry(t *testing.T) {
	clock := newFakeClock()
	c, err := New[string](WithClock(clock))
	require.NoError(t, err)

	c.Set("k", "v", time.Minute)

	clock.Advance(59 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must not be served at or past its expiry")
	assert.Equal(t, 0, c.Len(), "expired entry is evicted lazily on read")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Evictions)
}

func TestTTL_PerEntryTTL(t *testing.T) {
	clock := newFakeClock()
	c, err := New[int](WithClock(clock))
	require.NoError(t, err)

	c.Set("short", 1, 60*time.Second)
	c.Set("long", 2, 300*time.Second)

	clock.Advance(61 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_NonPositiveTTLStoresNothing(t *testing.T) {
	c, err := New[int]()
	require.NoError(t, err)
	c.Set("k", 1, 0)
	assert.Equal(t, 0, c.Len())
}

func TestTTL_SweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	c, err := New[int](WithClock(clock))
	require.NoError(t, err)

	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Hour)
	c.Set("c", 3, 2*time.Second)

	clock.Advance(3 * time.Second)
	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Sweep(), "second sweep has nothing to do")

	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestTTL_MaybeSweepUsesInjectedRandom(t *testing.T) {
	clock := newFakeClock()
	roll := 0.5
	c, err := New[int](WithClock(clock), WithRandom(func() float64 { return roll }))
	require.NoError(t, err)

	c.Set("a", 1, time.Second)
	clock.Advance(2 * time.Second)

	assert.False(t, c.MaybeSweep())
	assert.Equal(t, 1, c.Len())

	roll = 0.05
	assert.True(t, c.MaybeSweep())
	assert.Equal(t, 0, c.Len())
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c, err := New[int]()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				c.Set(key, j, time.Minute)
				c.Get(key)
				c.Sweep()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}

func TestTTL_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New[int](WithMetrics(reg, "fetch"))
	require.NoError(t, err)

	c.Set("a", 1, time.Minute)
	c.Get("a")
	c.Get("missing")

	expected := `
# HELP submerge_cache_hits_total Total number of cache hits
# TYPE submerge_cache_hits_total counter
submerge_cache_hits_total{component="fetch"} 1
# HELP submerge_cache_misses_total Total number of cache misses
# TYPE submerge_cache_misses_total counter
submerge_cache_misses_total{component="fetch"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"submerge_cache_hits_total", "submerge_cache_misses_total"))

	// A second cache with the same component shares the collectors.
	_, err = New[int](WithMetrics(reg, "fetch"))
	require.NoError(t, err)
}
