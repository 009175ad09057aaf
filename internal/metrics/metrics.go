// Package metrics holds the Prometheus collectors shared by the crawler jobs
// and the HTTP layer. Collectors exist from package init so code paths can
// record unconditionally; Register exposes them on the default registry.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tube301_candidates_total",
			Help: "Discovery candidates processed, by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tube301_fetch_errors_total",
			Help: "Failed upstream calls, by operation.",
		},
		[]string{"operation"},
	)

	RepeatedPages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tube301_search_repeated_pages_total",
			Help: "Search pages skipped because they repeated the previous page.",
		},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tube301_job_duration_seconds",
			Help:    "Duration of crawler job runs, by job and status.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job", "status"},
	)

	RankedVideos = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tube301_ranked_videos",
			Help: "Size of the current ranked set.",
		},
	)

	UpdateBacklog = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tube301_update_backlog",
			Help: "Records still waiting for a refresh in the running pass, by job.",
		},
		[]string{"job"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tube301_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tube301_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tube301_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tube301_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)
)

// Register adds every collector to the default registry. Call once at startup.
func Register(pool *pgxpool.Pool) {
	// DB pool gauges read live stats from pgxpool
	if pool != nil {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "tube301_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 { return float64(pool.Stat().AcquiredConns()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "tube301_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(pool.Stat().IdleConns()) },
			),
		)
	}

	prometheus.MustRegister(
		CandidatesTotal,
		FetchErrors,
		RepeatedPages,
		JobDuration,
		RankedVideos,
		UpdateBacklog,
		RequestDuration,
		RequestsInFlight,
		CacheHits,
		CacheMisses,
	)
}
