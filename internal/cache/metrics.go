package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer, component string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": component}
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "submerge",
			Subsystem:   "cache",
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "submerge",
			Subsystem:   "cache",
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of cache misses",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "submerge",
			Subsystem:   "cache",
			Name:        "sets_total",
			ConstLabels: labels,
			Help:        "Total number of cache set operations",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "submerge",
			Subsystem:   "cache",
			Name:        "evictions_total",
			ConstLabels: labels,
			Help:        "Total number of expired entries removed",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "submerge",
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of entries in cache",
		}),
	}

	var err error
	if m.hits, err = registerCounter(reg, m.hits); err != nil {
		return nil, err
	}
	if m.misses, err = registerCounter(reg, m.misses); err != nil {
		return nil, err
	}
	if m.sets, err = registerCounter(reg, m.sets); err != nil {
		return nil, err
	}
	if m.evictions, err = registerCounter(reg, m.evictions); err != nil {
		return nil, err
	}
	if err := reg.Register(m.size); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.size = are.ExistingCollector.(prometheus.Gauge)
	}
	return m, nil
}

// registerCounter registers c, reusing an identical collector that is
// already registered (several caches may share one component label).
func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Counter), nil
		}
		return nil, err
	}
	return c, nil
}
