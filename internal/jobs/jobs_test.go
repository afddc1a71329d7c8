package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"openccp/internal/model"
)

type countingRunner struct {
	mu    sync.Mutex
	calls map[int64]int
	all   int
	done  chan int64
}

func newCountingRunner() *countingRunner {
	return &countingRunner{calls: map[int64]int{}, done: make(chan int64, 16)}
}

func (r *countingRunner) Run(ctx context.Context, campID int64) (model.RunStatus, error) {
	r.mu.Lock()
	r.calls[campID]++
	r.mu.Unlock()
	r.done <- campID
	return model.RunStatus{CampID: campID, State: model.RunCompleted}, nil
}

func (r *countingRunner) RunAll(ctx context.Context) error {
	r.mu.Lock()
	r.all++
	r.mu.Unlock()
	r.done <- 0
	return nil
}

func TestDispatcherCoalescesAndDrops(t *testing.T) {
	r := newCountingRunner()
	d := NewDispatcher(r, 0, 1, 2)
	if !d.Submit(1) || !d.Submit(1) {
		t.Fatal("duplicate submit should coalesce, not drop")
	}
	if d.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", d.Pending())
	}
	if !d.Submit(2) {
		t.Fatal("second camp should fit")
	}
	if d.Submit(3) {
		t.Fatal("full queue should drop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()
	got := map[int64]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-r.done:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher did not run queued camps")
		}
	}
	if !got[1] || !got[2] || r.calls[1] != 1 {
		t.Fatalf("unexpected runs: %v %v", got, r.calls)
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	d := NewDispatcher(newCountingRunner(), 1, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestSchedulerRunsAllOnTick(t *testing.T) {
	r := newCountingRunner()
	s, err := NewScheduler("@every 1s", r)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !s.Next().IsZero() {
		t.Fatal("next tick reported before start")
	}
	s.Start(ctx)
	if s.Next().IsZero() {
		t.Fatal("next tick not scheduled")
	}
	select {
	case <-r.done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled tick never ran")
	}
	s.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("every hour", newCountingRunner()); err == nil {
		t.Fatal("expected parse error")
	}
}
