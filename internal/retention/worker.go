// Package retention periodically prunes old rows from the run journal.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/rg/sedbot/internal/metrics"
)

type Pruner interface {
	PruneRuns(cutoff time.Time) (int64, error)
}

type Worker struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewWorker(pruner Pruner, retention, interval time.Duration) *Worker {
	return &Worker{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

// Start prunes once immediately, then every interval until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Starting retention worker", "interval", w.interval, "retention", w.retention)

	w.cleanup()
	for {
		select {
		case <-ticker.C:
			w.cleanup()
		case <-ctx.Done():
			slog.Info("Retention worker stopped")
			return
		}
	}
}

func (w *Worker) cleanup() {
	if _, err := w.PruneOnce(); err != nil {
		slog.Error("Error during journal cleanup", "error", err)
	}
}

// PruneOnce deletes finished runs older than the retention window.
func (w *Worker) PruneOnce() (int64, error) {
	cutoff := w.now().Add(-w.retention)
	deleted, err := w.pruner.PruneRuns(cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		metrics.JournalPrunedTotal.Add(float64(deleted))
		slog.Info("Pruned run journal", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
