package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for PromptVault
type Metrics struct {
	// Prompt metrics
	PromptsCreated  *prometheus.CounterVec
	PromptsUpdated  *prometheus.CounterVec
	PromptsDeleted  *prometheus.CounterVec
	VersionsCreated *prometheus.CounterVec
	VersionRestores *prometheus.CounterVec
	LockConflicts   prometheus.Counter

	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	CriterionScores    *prometheus.HistogramVec

	// System metrics
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	EventsPublished     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			PromptsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_prompts_created_total",
					Help: "Total number of prompts created",
				},
				[]string{"category"},
			),
			PromptsUpdated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_prompts_updated_total",
					Help: "Total number of accepted prompt updates",
				},
				[]string{"category"},
			),
			PromptsDeleted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_prompts_deleted_total",
					Help: "Total number of prompts soft-deleted",
				},
				[]string{"category"},
			),
			VersionsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_versions_created_total",
					Help: "Total number of prompt versions appended",
				},
				[]string{"category"},
			),
			VersionRestores: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_version_restores_total",
					Help: "Total number of version restores",
				},
				[]string{"category"},
			),
			LockConflicts: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "promptvault_lock_conflicts_total",
					Help: "Updates rejected because the submitted lock_version was stale",
				},
			),
			EvaluationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_evaluations_total",
					Help: "Total number of evaluations by terminal status",
				},
				[]string{"status"},
			),
			EvaluationDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "promptvault_evaluation_duration_seconds",
					Help:    "Duration of evaluation runs in seconds",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to 256s
				},
			),
			CriterionScores: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "promptvault_criterion_scores",
					Help:    "Distribution of criterion scores",
					Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
				},
				[]string{"criterion"},
			),
			CacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "promptvault_cache_hits_total",
					Help: "Total number of cache hits",
				},
			),
			CacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "promptvault_cache_misses_total",
					Help: "Total number of cache misses",
				},
			),
			EventsPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_events_published_total",
					Help: "Total number of events published to the bus",
				},
				[]string{"type"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "promptvault_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "promptvault_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})
	return sharedMetrics
}
