package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsSyncedTotal counts item sync attempts by outcome
	ItemsSyncedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_sync_items_total",
			Help: "Total number of item sync attempts",
		},
		[]string{"status"},
	)

	// PagesProcessedTotal counts transaction delta pages by outcome
	PagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_sync_pages_total",
			Help: "Total number of transaction delta pages processed",
		},
		[]string{"status"},
	)

	// DeltasAppliedTotal counts transaction deltas applied by operation
	DeltasAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_sync_deltas_applied_total",
			Help: "Total number of transaction deltas applied",
		},
		[]string{"operation"},
	)

	// DeltasSkippedTotal counts deltas silently dropped by the defensive no-op rules
	DeltasSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_sync_deltas_skipped_total",
			Help: "Total number of transaction deltas skipped",
		},
		[]string{"reason"},
	)

	// SyncErrorsTotal counts item sync failures by error code
	SyncErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_sync_errors_total",
			Help: "Total number of item sync failures",
		},
		[]string{"code"},
	)

	// SyncDuration tracks per-item sync duration
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_sync_item_duration_seconds",
			Help:    "Item sync duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)
