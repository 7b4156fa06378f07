package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rg/sedbot/internal/security"
	"github.com/rg/sedbot/internal/storage"
)

type journalEntry struct {
	id     string
	status storage.RunStatus
	errMsg string
}

type fakeJournal struct {
	started  []string
	finished []journalEntry
}

func (j *fakeJournal) StartRun(id string, _ time.Time) error {
	j.started = append(j.started, id)
	return nil
}

func (j *fakeJournal) FinishRun(id string, _ time.Time, status storage.RunStatus, errMsg string) error {
	j.finished = append(j.finished, journalEntry{id: id, status: status, errMsg: errMsg})
	return nil
}

// fakeClock advances only when a run executes.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestSupervisor(cfg Config, journal Journal, sanitizer *security.Sanitizer) (*Supervisor, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	s := New(cfg, journal, sanitizer)
	s.now = clock.Now
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return s, clock
}

// scriptedRun returns results in order. Call i advances the clock by
// steps[i], or by the last step once steps run out.
func scriptedRun(clock *fakeClock, steps []time.Duration, results ...error) (RunFunc, *int) {
	calls := 0
	return func(_ context.Context, _ string) error {
		clock.now = clock.now.Add(steps[min(calls, len(steps)-1)])
		err := results[calls]
		calls++
		return err
	}, &calls
}

func TestRun_CleanDisconnect(t *testing.T) {
	journal := &fakeJournal{}
	s, clock := newTestSupervisor(Config{MaxFailuresPerMinute: 30}, journal, nil)
	run, calls := scriptedRun(clock, []time.Duration{time.Minute}, nil)

	if err := s.Run(context.Background(), run); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
	if len(journal.finished) != 1 || journal.finished[0].status != storage.RunDisconnected {
		t.Errorf("journal = %+v, want one disconnected run", journal.finished)
	}
}

func TestRun_RestartsWithinBudget(t *testing.T) {
	journal := &fakeJournal{}
	s, clock := newTestSupervisor(Config{MaxFailuresPerMinute: 30}, journal, nil)
	transient := errors.New("connection reset")
	// One failure every 10s is 6 per minute, well under 30.
	run, calls := scriptedRun(clock, []time.Duration{10 * time.Second}, transient, transient, transient, nil)

	if err := s.Run(context.Background(), run); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if *calls != 4 {
		t.Errorf("calls = %d, want 4", *calls)
	}

	wantStatus := []storage.RunStatus{storage.RunFailed, storage.RunFailed, storage.RunFailed, storage.RunDisconnected}
	if len(journal.finished) != len(wantStatus) {
		t.Fatalf("journal has %d entries, want %d", len(journal.finished), len(wantStatus))
	}
	for i, want := range wantStatus {
		if journal.finished[i].status != want {
			t.Errorf("entry %d status = %s, want %s", i, journal.finished[i].status, want)
		}
		if journal.finished[i].id != journal.started[i] {
			t.Errorf("entry %d id = %s, started %s", i, journal.finished[i].id, journal.started[i])
		}
	}
	if journal.finished[0].errMsg != "connection reset" {
		t.Errorf("errMsg = %q, want %q", journal.finished[0].errMsg, "connection reset")
	}
}

func TestRun_BudgetExceeded(t *testing.T) {
	tests := []struct {
		name      string
		max       int
		steps     []time.Duration
		wantCalls int
	}{
		{"first_failure_over_budget", 1, []time.Duration{10 * time.Second}, 1},
		{"steady_rate_over_budget", 1, []time.Duration{40 * time.Second}, 1},
		// Two slow failures buy 20s of budget, the burst after spends it.
		{"burst_after_slow_failures", 30, []time.Duration{10 * time.Second, 10 * time.Second, 0}, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clock := newTestSupervisor(Config{MaxFailuresPerMinute: tt.max}, nil, nil)
			runErr := errors.New("bad gateway")
			results := make([]error, 20)
			for i := range results {
				results[i] = runErr
			}
			run, calls := scriptedRun(clock, tt.steps, results...)

			err := s.Run(context.Background(), run)
			if !errors.Is(err, ErrFailureBudgetExceeded) {
				t.Fatalf("Run = %v, want ErrFailureBudgetExceeded", err)
			}
			if !errors.Is(err, runErr) {
				t.Errorf("Run = %v, want it to wrap the last run error", err)
			}
			if *calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", *calls, tt.wantCalls)
			}
		})
	}
}

func TestExceeded(t *testing.T) {
	s := New(Config{MaxFailuresPerMinute: 30}, nil, nil)

	tests := []struct {
		failures int
		elapsed  time.Duration
		want     bool
	}{
		{1, 0, true},
		{1, 2 * time.Second, false},
		{1, 1999 * time.Millisecond, true},
		{30, time.Minute, false},
		{31, time.Minute, true},
		{60, 2 * time.Minute, false},
	}

	for _, tt := range tests {
		if got := s.exceeded(tt.failures, tt.elapsed); got != tt.want {
			t.Errorf("exceeded(%d, %s) = %v, want %v", tt.failures, tt.elapsed, got, tt.want)
		}
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	journal := &fakeJournal{}
	s, _ := newTestSupervisor(Config{MaxFailuresPerMinute: 30}, journal, nil)

	ctx, cancel := context.WithCancel(context.Background())
	run := func(ctx context.Context, _ string) error {
		cancel()
		return fmt.Errorf("failed to receive message: %w", ctx.Err())
	}

	if err := s.Run(ctx, run); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if len(journal.finished) != 1 || journal.finished[0].status != storage.RunCancelled {
		t.Errorf("journal = %+v, want one cancelled run", journal.finished)
	}
}

func TestRun_CancelDuringRestartDelay(t *testing.T) {
	s, clock := newTestSupervisor(Config{MaxFailuresPerMinute: 30, RestartDelay: time.Hour}, nil, nil)
	run, calls := scriptedRun(clock, []time.Duration{time.Hour}, errors.New("timeout"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, run) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
}

func TestRun_SanitizesJournaledErrors(t *testing.T) {
	const token = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"
	sanitizer, err := security.NewSanitizer([]string{token}, security.DefaultPatterns)
	if err != nil {
		t.Fatalf("NewSanitizer failed: %v", err)
	}
	journal := &fakeJournal{}
	s, clock := newTestSupervisor(Config{MaxFailuresPerMinute: 30}, journal, sanitizer)
	leak := fmt.Errorf(`Post "https://api.telegram.org/bot%s/getUpdates": EOF`, token)
	run, _ := scriptedRun(clock, []time.Duration{time.Minute}, leak, nil)

	if err := s.Run(context.Background(), run); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if strings.Contains(journal.finished[0].errMsg, token) {
		t.Errorf("journaled error leaks token: %q", journal.finished[0].errMsg)
	}
}
