// Package metrics - метрики Prometheus для news_hub.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "news_hub"

var (
	// FetchTotal - загрузки лент по источнику и результату (ok, error, empty).
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Total number of feed retrievals",
		},
		[]string{"source", "result"},
	)

	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Total number of network attempts including retries",
		},
		[]string{"source"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of feed retrieval and parsing in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"source"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted because the cache was full",
		},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Current number of cached feed results",
		},
		[]string{"cache"},
	)

	// Requests - обработанные конверты по действию и типу ответа.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Dispatched protocol requests by action and response type",
		},
		[]string{"action", "type"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)
)

// RecordFetch записывает результат одной загрузки ленты.
func RecordFetch(source, result string, started time.Time) {
	FetchTotal.WithLabelValues(source, result).Inc()
	FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

func RecordCache(hit bool) {
	if hit {
		CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	CacheRequests.WithLabelValues("miss").Inc()
}
