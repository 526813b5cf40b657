// Package cache provides the in-memory TTL cache used for fetch results.
//
// Entries carry their own TTL, are evicted lazily on read and by explicit
// sweeps, and are never returned past their expiry. Nothing is persisted.
package cache

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultSweepProbability is the share of MaybeSweep calls that sweep.
const DefaultSweepProbability = 0.1

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
	Size      int
}

// TTL is a concurrency-safe cache whose entries expire individually.
type TTL[V any] struct {
	mu    sync.Mutex
	items map[string]entry[V]
	stats Stats

	clock     Clock
	random    func() float64
	sweepProb float64
	metrics   *cacheMetrics
}

// New builds a cache. It only fails when metrics registration fails.
func New[V any](opts ...Option) (*TTL[V], error) {
	o := &options{
		clock:     wallClock{},
		random:    rand.Float64,
		sweepProb: DefaultSweepProbability,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	c := &TTL[V]{
		items:     make(map[string]entry[V]),
		clock:     o.clock,
		random:    o.random,
		sweepProb: o.sweepProb,
	}
	if o.registerer != nil {
		m, err := newCacheMetrics(o.registerer, o.component)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	return c, nil
}

// Get returns the value stored under key if it has not expired. An expired
// entry is removed as a side effect.
func (c *TTL[V]) Get(key string) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.items[key]
	if ok && e.expired(now) {
		delete(c.items, key)
		c.stats.Evictions++
		c.recordEviction(len(c.items))
		ok = false
	}
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mu.Unlock()

	if !ok {
		if c.metrics != nil {
			c.metrics.misses.Inc()
		}
		var zero V
		return zero, false
	}
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	expiresAt := c.clock.Now().Add(ttl)

	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.stats.Sets++
	size := len(c.items)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.sets.Inc()
		c.metrics.size.Set(float64(size))
	}
}

func (c *TTL[V]) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.items[key]
	delete(c.items, key)
	size := len(c.items)
	c.mu.Unlock()

	if ok && c.metrics != nil {
		c.metrics.size.Set(float64(size))
	}
	return ok
}

// Sweep removes every expired entry and returns how many were removed.
// Live entries are never touched.
func (c *TTL[V]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	if removed > 0 {
		c.stats.Evictions += int64(removed)
		if c.metrics != nil {
			c.metrics.evictions.Add(float64(removed))
			c.metrics.size.Set(float64(len(c.items)))
		}
	}
	return removed
}

// MaybeSweep sweeps with the configured probability and reports whether it did.
func (c *TTL[V]) MaybeSweep() bool {
	if c.random() >= c.sweepProb {
		return false
	}
	c.Sweep()
	return true
}

// Len counts stored entries, expired or not.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	return s
}

// recordEviction must be called with c.mu held.
func (c *TTL[V]) recordEviction(size int) {
	if c.metrics == nil {
		return
	}
	c.metrics.evictions.Inc()
	c.metrics.size.Set(float64(size))
}
