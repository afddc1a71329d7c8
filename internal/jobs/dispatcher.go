package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"openccp/internal/logging"
	"openccp/internal/metrics"
	"openccp/internal/model"
)

// retryDelay spaces out triggers for a camp whose run is still in flight.
const retryDelay = 250 * time.Millisecond

// Runner recomputes a single camp.
type Runner interface {
	Run(ctx context.Context, campID int64) (model.RunStatus, error)
}

// Dispatcher queues fire-and-forget recompute triggers. A camp already waiting
// in the queue is not queued twice, and triggers are dropped when the queue is
// full. Dequeued runs are throttled by a token bucket.
type Dispatcher struct {
	runner  Runner
	limiter *rate.Limiter
	queue   chan int64

	mu      sync.Mutex
	pending map[int64]bool
}

// NewDispatcher returns a dispatcher. rps <= 0 disables throttling.
func NewDispatcher(r Runner, rps float64, burst, size int) *Dispatcher {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		runner:  r,
		limiter: rate.NewLimiter(limit, burst),
		queue:   make(chan int64, size),
		pending: make(map[int64]bool),
	}
}

// Submit enqueues a recompute of campID. It reports false if the trigger was dropped.
func (d *Dispatcher) Submit(campID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[campID] {
		return true
	}
	select {
	case d.queue <- campID:
		d.pending[campID] = true
		return true
	default:
		metrics.TriggersDropped.Inc()
		logging.Warn("recompute_trigger_dropped", map[string]any{"camp_id": campID})
		return false
	}
}

// Pending returns the number of queued triggers.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-d.queue:
			if err := d.limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
			d.mu.Lock()
			delete(d.pending, id)
			d.mu.Unlock()
			st, err := d.runner.Run(ctx, id)
			switch {
			case errors.Is(err, model.ErrRunInProgress):
				// the running pass may predate the trigger
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(retryDelay):
				}
				d.Submit(id)
			case err != nil:
				logging.Warn("recompute_trigger_failed", map[string]any{"camp_id": id, "error": err.Error()})
			default:
				logging.Debug("recompute_trigger_done", map[string]any{"camp_id": id, "run_id": st.RunID})
			}
		}
	}
}
