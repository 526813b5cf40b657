package httpapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics_CountsRequestsAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHandler(&fakeRunner{output: "x: 1\n"}, Options{Registry: reg})

	// 1) ok request
	if rr := serve(h, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d body=%q", rr.Code, rr.Body.String())
	}

	// 2) error request
	if rr := serve(h, http.MethodGet, "/sub?limit=x"); rr.Code != http.StatusBadRequest {
		t.Fatalf("sub status=%d body=%q", rr.Code, rr.Body.String())
	}

	// 3) metrics snapshot (the /metrics request itself isn't counted inside its own response).
	rr := serve(h, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d body=%q", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()

	for _, want := range []string{
		`submerge_http_requests_total{pattern="GET /healthz",status="200"} 1`,
		`submerge_http_requests_total{pattern="GET /sub",status="400"} 1`,
		`submerge_app_errors_total{code="INVALID_ARGUMENT",stage="validate_request"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics body missing %s, got:\n%s", want, body)
		}
	}
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := NewHandler(&fakeRunner{}, Options{Registry: reg})
	b := NewHandler(&fakeRunner{}, Options{Registry: reg})

	serve(a, http.MethodGet, "/healthz")
	serve(b, http.MethodGet, "/healthz")

	body := serve(a, http.MethodGet, "/metrics").Body.String()
	if !strings.Contains(body, `submerge_http_requests_total{pattern="GET /healthz",status="200"} 2`) {
		t.Fatalf("handlers should share counters, got:\n%s", body)
	}
}
