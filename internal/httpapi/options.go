package httpapi

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Options controls HTTP API runtime behavior.
type Options struct {
	// RunTimeout is the hard upper bound for a single aggregate request
	// (every fetch + compile + assemble).
	RunTimeout time.Duration

	Logger *slog.Logger

	// Registry receives the HTTP metrics and is served on /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry
}

func (o Options) withDefaults() Options {
	if o.RunTimeout <= 0 {
		o.RunTimeout = 60 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	return o
}
