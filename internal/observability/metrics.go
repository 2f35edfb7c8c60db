package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// QueryDuration observes warehouse query latency in seconds, labeled by
	// outcome ("ok" or "error").
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_query_duration_seconds",
			Help:    "Wall-clock latency of warehouse queries.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	// QueriesTotal counts executed warehouse queries by outcome.
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_queries_total",
			Help: "Total warehouse queries executed.",
		},
		[]string{"status"},
	)

	// CacheEvents counts metric result cache hits and misses.
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metric_cache_events_total",
			Help: "Metric result cache lookups by outcome.",
		},
		[]string{"event"},
	)

	// SessionsCreated counts warehouse sessions established over the process
	// lifetime; a high rate indicates aggressive staleness turnover.
	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warehouse_sessions_created_total",
			Help: "Warehouse sessions created.",
		},
	)

	// ComputeDuration observes end-to-end metric computation latency.
	ComputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metric_compute_duration_seconds",
			Help:    "End-to-end metric computation latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"metric", "status"},
	)
)

func init() {
	registry.MustRegister(
		QueryDuration,
		QueriesTotal,
		CacheEvents,
		SessionsCreated,
		ComputeDuration,
	)
}

// Handler returns the scrape endpoint handler for the service registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
