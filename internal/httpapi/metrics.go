package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type httpMetrics struct {
	requests  *prometheus.CounterVec
	appErrors *prometheus.CounterVec
	handler   http.Handler
}

func newHTTPMetrics(reg *prometheus.Registry) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "submerge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by ServeMux pattern and status.",
		}, []string{"pattern", "status"}),
		appErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "submerge",
			Name:      "app_errors_total",
			Help:      "Application errors returned to clients.",
		}, []string{"stage", "code"}),
	}
	m.requests = registerVec(reg, m.requests)
	m.appErrors = registerVec(reg, m.appErrors)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

// registerVec reuses an already registered collector so several handlers can
// share one registry.
func registerVec(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *httpMetrics) incRequest(pattern string, status int) {
	if status == 0 {
		status = http.StatusOK
	}
	if pattern == "" {
		pattern = "(unknown)"
	}
	m.requests.WithLabelValues(pattern, strconv.Itoa(status)).Inc()
}

func (m *httpMetrics) incAppError(stage, code string) {
	stage = strings.TrimSpace(stage)
	code = strings.TrimSpace(code)
	if stage == "" {
		stage = "(unknown)"
	}
	if code == "" {
		code = "(unknown)"
	}
	m.appErrors.WithLabelValues(stage, code).Inc()
}

func (m *httpMetrics) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	m.handler.ServeHTTP(w, r)
}
