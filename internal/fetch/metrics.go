package fetch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type fetchMetrics struct {
	outcomes *prometheus.CounterVec
}

func newFetchMetrics(reg prometheus.Registerer) (*fetchMetrics, error) {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "submerge",
		Subsystem: "fetch",
		Name:      "outcomes_total",
		Help:      "Source fetches by result (ok, error, cache_hit)",
	}, []string{"result"})
	if err := reg.Register(outcomes); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		outcomes = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return &fetchMetrics{outcomes: outcomes}, nil
}

func (m *fetchMetrics) observe(result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(result).Inc()
}
