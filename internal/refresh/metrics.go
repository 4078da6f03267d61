package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the controller's Prometheus collectors.
type Metrics struct {
	fetches      *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	staleDropped *prometheus.CounterVec
}

// NewMetrics registers the controller collectors with reg. A nil reg gets a
// private registry so several controllers can coexist.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsview_fetch_total",
				Help: "Total number of endpoint fetches by outcome",
			},
			[]string{"target", "outcome"},
		),

		fetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opsview_fetch_duration_seconds",
				Help:    "Endpoint fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),

		staleDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opsview_stale_dropped_total",
				Help: "Fetch results discarded because a newer request had already been applied",
			},
			[]string{"target"},
		),
	}
}

func (m *Metrics) recordFetch(target, outcome string, seconds float64) {
	m.fetches.WithLabelValues(target, outcome).Inc()
	m.fetchLatency.WithLabelValues(target).Observe(seconds)
}

func (m *Metrics) recordStale(target string) {
	m.staleDropped.WithLabelValues(target).Inc()
}
