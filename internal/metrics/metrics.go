// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for RecordsTotal.
const (
	OutcomeStored    = "stored"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
	OutcomeRejected  = "rejected"
)

var (
	// RecordsTotal counts pipeline results by record source and outcome.
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_records_total",
			Help: "Total number of records handled by the ingestion pipeline",
		},
		[]string{"source", "outcome"},
	)

	LinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_tail_lines_total",
			Help: "Total number of complete lines read from the followed file",
		},
	)

	MalformedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_tail_malformed_lines_total",
			Help: "Total number of lines discarded because they were not valid JSON",
		},
	)

	FilteredLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_tail_filtered_lines_total",
			Help: "Total number of lines discarded because their event type is not alert",
		},
		[]string{"event_type"},
	)

	TailOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentry_tail_offset_bytes",
			Help: "Current byte offset of the file follower",
		},
	)

	TailReopens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_tail_reopens_total",
			Help: "Total number of times the followed file was reopened after truncation or rotation",
		},
	)

	NormalizationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_normalization_errors_total",
			Help: "Total number of normalization failures",
		},
		[]string{"source", "kind"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentry_storage_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_storage_errors_total",
			Help: "Total number of storage errors",
		},
		[]string{"operation"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentry_storage_breaker_open",
			Help: "1 when the alert store circuit breaker is open",
		},
		[]string{"name"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_rate_limit_hits_total",
			Help: "Total number of report submissions rejected by the rate limiter",
		},
	)

	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_dlq_writes_total",
			Help: "Total number of records written to the dead letter queue",
		},
		[]string{"backend", "status"},
	)
)
