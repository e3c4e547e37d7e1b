package colstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reconcileRunsTotal counts reconciliation passes by outcome.
	reconcileRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colstore_reconcile_runs_total",
		Help: "Total number of collection reconciliation passes",
	}, []string{"outcome"})

	// reconcileActionsTotal counts corrective actions by type.
	reconcileActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colstore_reconcile_actions_total",
		Help: "Total number of reconciliation actions applied to metadata",
	}, []string{"action"})

	reconcileSkippedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "colstore_reconcile_skipped_files_total",
		Help: "Files skipped during a scan because they could not be read as UTF-8 text",
	})

	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "colstore_reconcile_duration_seconds",
		Help:    "Duration of a single collection reconciliation pass",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)
