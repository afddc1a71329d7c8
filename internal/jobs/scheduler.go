// Package jobs runs camp recomputes in the background: on a cron schedule and
// in response to asynchronous triggers.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"openccp/internal/logging"
)

// AllRunner recomputes every camp.
type AllRunner interface {
	RunAll(ctx context.Context) error
}

// Scheduler recomputes every camp on a cron spec such as "@every 1h" or "0 */6 * * *".
// A tick is skipped while the previous one is still running.
type Scheduler struct {
	cron *cron.Cron
	mu   sync.Mutex
	ctx  context.Context
}

func NewScheduler(spec string, r AllRunner) (*Scheduler, error) {
	l := cron.PrintfLogger(logging.Std())
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		ctx:  context.Background(),
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx := s.context()
		start := time.Now()
		if err := r.RunAll(ctx); err != nil {
			logging.Error("scheduled_recompute_error", map[string]any{"error": err.Error()})
			return
		}
		logging.Info("scheduled_recompute", map[string]any{"took": time.Since(start).String()})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Start runs the schedule until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the next tick fires, zero if not started.
func (s *Scheduler) Next() time.Time {
	if es := s.cron.Entries(); len(es) > 0 {
		return es[0].Next
	}
	return time.Time{}
}
