package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/John-Robertt/submerge/internal/cache"
	"github.com/John-Robertt/submerge/internal/config"
	"github.com/John-Robertt/submerge/internal/fetch"
	"github.com/John-Robertt/submerge/internal/merge"
)

// app is the wired pipeline shared by serve and merge.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	service  *merge.Service
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c, err := cache.New[fetch.Result](cache.WithMetrics(reg, "fetch"))
	if err != nil {
		return nil, err
	}
	f := fetch.New(c,
		fetch.WithHTTPOptions(fetch.Options{Timeout: cfg.FetchTimeout}),
		fetch.WithLogger(logger),
		fetch.WithMetrics(reg),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		service:  merge.New(f, cfg.Merge(), merge.WithLogger(logger)),
	}, nil
}
