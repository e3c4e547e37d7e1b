package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"colstore-go/internal/colstore"
)

var (
	watchPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "colstore_watch_passes_total",
		Help: "Reconcile-all passes started by the watch loop, by outcome",
	}, []string{"outcome"})

	watchLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "colstore_watch_last_success_timestamp_seconds",
		Help: "Unix time of the last reconcile-all pass that finished without errors",
	})
)

// PassReport describes the most recent reconcile-all pass.
type PassReport struct {
	StartedAt   time.Time
	Duration    time.Duration
	Collections int
	Added       int
	Modified    int
	Deleted     int
	Err         error
}

// Watcher periodically runs a reconcile-all pass. At most one pass runs at
// a time; a tick that arrives while a pass is running is skipped.
type Watcher struct {
	rec      colstore.Reconciling
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	inProcess bool
	last      *PassReport
}

// NewWatcher creates a Watcher over rec.
func NewWatcher(rec colstore.Reconciling, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		rec:      rec,
		interval: interval,
		logger:   logger.With(slog.String("component", "watch")),
	}
}

// Run ticks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watch loop started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch loop stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs one reconcile-all pass. It returns nil, true if a pass was
// already in progress.
func (w *Watcher) RunOnce(ctx context.Context) (*PassReport, bool) {
	w.mu.Lock()
	if w.inProcess {
		w.mu.Unlock()
		w.logger.Warn("reconciliation already running, skipping tick")
		watchPassesTotal.WithLabelValues("skipped").Inc()
		return nil, true
	}
	w.inProcess = true
	w.mu.Unlock()

	report := &PassReport{StartedAt: time.Now().UTC()}
	defer func() {
		w.mu.Lock()
		w.inProcess = false
		w.last = report
		w.mu.Unlock()
	}()

	results, err := w.rec.ReconcileAll(ctx)
	report.Duration = time.Since(report.StartedAt)
	report.Collections = len(results)
	report.Err = err
	for _, r := range results {
		report.Added += r.FilesAdded
		report.Modified += r.FilesModified
		report.Deleted += r.FilesDeleted
	}

	if err != nil {
		watchPassesTotal.WithLabelValues("error").Inc()
		w.logger.Warn("reconcile pass incomplete", "error", err, "collections", report.Collections)
	} else {
		watchPassesTotal.WithLabelValues("ok").Inc()
		watchLastSuccess.SetToCurrentTime()
		w.logger.Info("reconcile pass finished",
			"collections", report.Collections,
			"added", report.Added,
			"modified", report.Modified,
			"deleted", report.Deleted,
			"duration", report.Duration.String(),
		)
	}
	return report, false
}

// InProgress reports whether a pass is running.
func (w *Watcher) InProgress() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inProcess
}

// LastPass returns the report of the most recent finished pass, or nil.
func (w *Watcher) LastPass() *PassReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
