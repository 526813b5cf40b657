package httpapi

import "net/http"

// NewMux returns the routes without the observability middleware.
func NewMux(run Runner, opt Options) *http.ServeMux {
	opt = opt.withDefaults()
	return newMux(run, opt, newHTTPMetrics(opt.Registry))
}

func newMux(run Runner, opt Options, m *httpMetrics) *http.ServeMux {
	h := subHandler{run: run, opt: opt, metrics: m}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleSub)
	mux.HandleFunc("GET /sub", h.handleSub)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /metrics", m.handleMetrics)
	mux.HandleFunc("GET /robots.txt", handleRobots)
	mux.HandleFunc("GET /favicon.ico", handleNoContent)
	return mux
}
