package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors. All sessions share one
// Metrics instance registered at server construction.
type Metrics struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	EventsTotal    *prometheus.CounterVec
	HandlerErrors  *prometheus.CounterVec
	PatchesTotal   prometheus.Counter
	EventDuration  prometheus.Histogram
}

// NewMetrics registers the server collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "livetree",
			Name:      "sessions_active",
			Help:      "Number of open update sessions.",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "livetree",
			Name:      "sessions_total",
			Help:      "Total update sessions opened.",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livetree",
			Name:      "events_total",
			Help:      "Events processed, by handler name.",
		}, []string{"handler"}),
		HandlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livetree",
			Name:      "handler_errors_total",
			Help:      "Handler failures, by handler name.",
		}, []string{"handler"}),
		PatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "livetree",
			Name:      "patches_total",
			Help:      "Patches emitted across all sessions.",
		}),
		EventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "livetree",
			Name:      "event_duration_seconds",
			Help:      "Handler invocation plus render and diff time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
