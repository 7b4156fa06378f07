// Package supervisor restarts the dispatch loop after transport failures
// until the failures-per-minute budget is spent.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rg/sedbot/internal/metrics"
	"github.com/rg/sedbot/internal/security"
	"github.com/rg/sedbot/internal/storage"
)

var ErrFailureBudgetExceeded = errors.New("failure budget exceeded")

// RunFunc connects, dispatches until the stream ends, and disconnects.
// A nil return is a clean disconnection.
type RunFunc func(ctx context.Context, runID string) error

// Journal records every run. *storage.Storage implements it.
type Journal interface {
	StartRun(id string, startedAt time.Time) error
	FinishRun(id string, finishedAt time.Time, status storage.RunStatus, errMsg string) error
}

type Config struct {
	MaxFailuresPerMinute int
	RestartDelay         time.Duration
}

type Supervisor struct {
	cfg       Config
	journal   Journal
	sanitizer *security.Sanitizer
	now       func() time.Time
	newID     func() string
}

// New returns a supervisor. journal and sanitizer may be nil.
func New(cfg Config, journal Journal, sanitizer *security.Sanitizer) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		journal:   journal,
		sanitizer: sanitizer,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run calls run until it returns nil, ctx is cancelled, or failures outpace
// the budget. Only the last case returns an error, wrapping both
// ErrFailureBudgetExceeded and the final run error.
func (s *Supervisor) Run(ctx context.Context, run RunFunc) error {
	start := s.now()
	failures := 0

	for {
		runID := s.newID()
		s.startRun(runID)
		slog.Info("Starting dispatch run", "run_id", runID, "failures", failures)

		err := run(ctx, runID)
		switch {
		case err == nil:
			s.finishRun(runID, storage.RunDisconnected, nil)
			slog.Info("Disconnected without errors", "run_id", runID)
			return nil

		case ctx.Err() != nil:
			s.finishRun(runID, storage.RunCancelled, nil)
			slog.Info("Dispatch run cancelled", "run_id", runID)
			return nil
		}

		failures++
		s.finishRun(runID, storage.RunFailed, err)
		elapsed := s.now().Sub(start)
		slog.Error("Dispatch run failed",
			"run_id", runID,
			"failures", failures,
			"elapsed", elapsed,
			"error", s.describe(err))

		if s.exceeded(failures, elapsed) {
			return fmt.Errorf("%w after %d failures in %s: %w", ErrFailureBudgetExceeded, failures, elapsed.Round(time.Second), err)
		}

		slog.Info("Restarting dispatch run", "delay", s.cfg.RestartDelay)
		if !s.wait(ctx) {
			return nil
		}
	}
}

// exceeded reports whether failures per elapsed minute is above the budget.
func (s *Supervisor) exceeded(failures int, elapsed time.Duration) bool {
	return float64(failures)*time.Minute.Seconds() > float64(s.cfg.MaxFailuresPerMinute)*elapsed.Seconds()
}

func (s *Supervisor) wait(ctx context.Context) bool {
	if s.cfg.RestartDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.cfg.RestartDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) startRun(runID string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.StartRun(runID, s.now()); err != nil {
		slog.Warn("Failed to journal run start", "run_id", runID, "error", err)
	}
}

func (s *Supervisor) finishRun(runID string, status storage.RunStatus, runErr error) {
	metrics.DispatchRunsTotal.WithLabelValues(string(status)).Inc()
	if s.journal == nil {
		return
	}
	if err := s.journal.FinishRun(runID, s.now(), status, s.describe(runErr)); err != nil {
		slog.Warn("Failed to journal run finish", "run_id", runID, "error", err)
	}
}

func (s *Supervisor) describe(err error) string {
	if err == nil {
		return ""
	}
	if s.sanitizer == nil {
		return err.Error()
	}
	return s.sanitizer.Error(err)
}
