// Package observability provides Prometheus metrics for the cache subsystem
// and upstream providers.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agripulse_cache_hits_total",
			Help: "Total number of reads served from the snapshot cache",
		},
		[]string{"domain"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agripulse_cache_misses_total",
			Help: "Total number of reads that fell through to a synchronous produce",
		},
		[]string{"domain"},
	)

	refreshPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agripulse_refresh_passes_total",
			Help: "Total number of completed refresh passes per domain",
		},
		[]string{"domain"},
	)

	refreshTopicDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agripulse_refresh_topic_duration_seconds",
			Help:    "Time spent producing one topic snapshot during a refresh pass",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"domain"},
	)

	refreshTopicFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agripulse_refresh_topic_failures_total",
			Help: "Total number of per-topic produce failures during refresh passes",
		},
		[]string{"domain"},
	)

	upstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agripulse_upstream_failures_total",
			Help: "Total number of upstream calls replaced by fallback data",
		},
		[]string{"provider"},
	)
)

// CacheHit records a read served from the cache.
func CacheHit(domain string) { cacheHits.WithLabelValues(domain).Inc() }

// CacheMiss records a read that required a synchronous produce.
func CacheMiss(domain string) { cacheMisses.WithLabelValues(domain).Inc() }

// RefreshPass records one completed refresh pass for a domain.
func RefreshPass(domain string) { refreshPasses.WithLabelValues(domain).Inc() }

// RefreshTopic records the duration of one topic's produce step.
func RefreshTopic(domain string, d time.Duration) {
	refreshTopicDuration.WithLabelValues(domain).Observe(d.Seconds())
}

// RefreshTopicFailure records a per-topic produce failure.
func RefreshTopicFailure(domain string) {
	refreshTopicFailures.WithLabelValues(domain).Inc()
}

// UpstreamFailure records an upstream call replaced by fallback data.
func UpstreamFailure(provider string) {
	upstreamFailures.WithLabelValues(provider).Inc()
}
