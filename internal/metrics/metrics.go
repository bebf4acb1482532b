// Package metrics provides Prometheus metrics for youtubingest.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nclsjn/youtubingest/internal/cache"
)

var (
	// IngestTotal counts completed ingest operations by source kind and
	// outcome.
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "youtubingest",
			Name:      "ingest_total",
			Help:      "Total number of ingest operations",
		},
		[]string{"source_kind", "status"},
	)

	// IngestDuration measures end-to-end ingest latency.
	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "youtubingest",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of ingest operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source_kind"},
	)

	// InFlightIngests tracks the number of ingest operations currently
	// running.
	InFlightIngests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "youtubingest",
			Name:      "ingest_in_flight",
			Help:      "Number of ingest operations currently running",
		},
	)

	// QuotaUsedTotal counts YouTube Data API quota units spent, by endpoint.
	QuotaUsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "youtubingest",
			Name:      "quota_used_total",
			Help:      "Total YouTube Data API quota units spent",
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerState tracks breaker state (0 = closed, 1 = half-open,
	// 2 = open), mirroring gobreaker.State's own ordinal values.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "youtubingest",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	// CacheSize reports each registered cache's current entry count.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "youtubingest",
			Name:      "cache_size",
			Help:      "Current number of entries in a registered cache",
		},
		[]string{"cache"},
	)

	// CacheHitRatio reports each registered cache's hit ratio since start.
	CacheHitRatio = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "youtubingest",
			Name:      "cache_hit_ratio",
			Help:      "Fraction of cache lookups that were hits",
		},
		[]string{"cache"},
	)
)

// RecordIngest records one completed ingest operation.
func RecordIngest(sourceKind, status string, durationSeconds float64) {
	IngestTotal.WithLabelValues(sourceKind, status).Inc()
	IngestDuration.WithLabelValues(sourceKind).Observe(durationSeconds)
}

// RecordQuota records quota units spent against one API endpoint.
func RecordQuota(endpoint string, units int) {
	QuotaUsedTotal.WithLabelValues(endpoint).Add(float64(units))
}

// SetBreakerState reports a circuit breaker's current numeric state.
func SetBreakerState(breaker string, state int) {
	CircuitBreakerState.WithLabelValues(breaker).Set(float64(state))
}

// ReportCacheStats publishes every registered cache's current Stats as
// gauges, meant to be called on the same tick as the Memory Monitor's
// sampling loop.
func ReportCacheStats(reg *cache.Registry) {
	for name, stats := range reg.Stats() {
		CacheSize.WithLabelValues(name).Set(float64(stats.Size))
		total := stats.Hits + stats.Misses
		ratio := 0.0
		if total > 0 {
			ratio = float64(stats.Hits) / float64(total)
		}
		CacheHitRatio.WithLabelValues(name).Set(ratio)
	}
}
