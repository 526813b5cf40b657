package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Clock supplies the current time. Tests inject a fake one.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	clock     Clock
	random    func() float64
	sweepProb float64

	registerer prometheus.Registerer
	component  string
}

// WithClock injects the time source used for expiry decisions.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRandom injects the source used by MaybeSweep. It must return values in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(o *options) {
		if fn != nil {
			o.random = fn
		}
	}
}

// WithSweepProbability sets how often MaybeSweep actually sweeps. Values outside
// [0, 1] are ignored.
func WithSweepProbability(p float64) Option {
	return func(o *options) {
		if p >= 0 && p <= 1 {
			o.sweepProb = p
		}
	}
}

// WithMetrics exposes cache statistics as Prometheus metrics labelled with
// component. A nil registerer disables metrics.
func WithMetrics(reg prometheus.Registerer, component string) Option {
	return func(o *options) {
		if reg != nil && component != "" {
			o.registerer = reg
			o.component = component
		}
	}
}
