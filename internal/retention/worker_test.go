package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (p *fakePruner) PruneRuns(cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.deleted, p.err
}

func (p *fakePruner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestPruneOnce_Cutoff(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{deleted: 3}
	w := NewWorker(pruner, 24*time.Hour, time.Hour)
	w.now = func() time.Time { return now }

	deleted, err := w.PruneOnce()
	if err != nil {
		t.Fatalf("PruneOnce failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if want := now.Add(-24 * time.Hour); !pruner.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", pruner.cutoffs[0], want)
	}
}

func TestPruneOnce_Error(t *testing.T) {
	pruner := &fakePruner{err: errors.New("database is locked")}
	w := NewWorker(pruner, time.Hour, time.Hour)

	if _, err := w.PruneOnce(); err == nil {
		t.Error("expected error from pruner")
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	pruner := &fakePruner{}
	w := NewWorker(pruner, time.Hour, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for pruner.calls() < 2 {
		select {
		case <-deadline:
			t.Fatalf("worker pruned %d times, want at least 2", pruner.calls())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
