package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage call outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querypilot_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	stageCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querypilot_stage_calls_total",
			Help: "Pipeline stage calls by outcome (hit, miss, error).",
		},
		[]string{"stage", "outcome"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querypilot_stage_duration_seconds",
			Help:    "Latency of uncached pipeline stage invocations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	assistantRecreationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querypilot_assistant_recreations_total",
			Help: "Number of times the shared assistant was created or recreated.",
		},
	)

	stageCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querypilot_stage_cache_entries",
			Help: "Current number of memoized stage results.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		stageCallsTotal,
		stageDurationSeconds,
		assistantRecreationsTotal,
		stageCacheEntries,
	)
}

func RecordStageCall(stage, outcome string) {
	stageCallsTotal.WithLabelValues(stage, outcome).Inc()
}

func ObserveStageDuration(stage string, d time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func RecordAssistantRecreation() {
	assistantRecreationsTotal.Inc()
}

func SetStageCacheEntries(n int) {
	stageCacheEntries.Set(float64(n))
}
