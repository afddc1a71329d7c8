// Package recompute regenerates a camp's scores and tweet matches from the
// account corpus and commits them as one atomic replacement.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"openccp/internal/logging"
	"openccp/internal/metrics"
	"openccp/internal/model"
	"openccp/internal/scoring"
)

// Source is the read side of the account/tweet store.
type Source interface {
	GetCamp(ctx context.Context, id int64) (model.Camp, error)
	ListCamps(ctx context.Context) ([]model.Camp, error)
	CampKeywords(ctx context.Context, campID int64) ([]model.Keyword, error)
	AccountsForScoring(ctx context.Context) iter.Seq2[model.Account, error]
	AccountTweets(ctx context.Context, accountID string) ([]model.Tweet, error)
}

// Sink atomically replaces a camp's derived rows.
type Sink interface {
	ReplaceCampResults(ctx context.Context, campID int64, scores []model.CampScore, matches []model.TweetMatch, at time.Time) error
}

// History records finished runs. It may be nil.
type History interface {
	RecordRun(ctx context.Context, r model.RunStatus) error
}

type Options struct {
	Workers     int
	ReadTimeout time.Duration
	RunTimeout  time.Duration
	Policy      scoring.Policy
}

// Orchestrator runs at most one recompute per camp at a time. Different camps
// may recompute concurrently.
type Orchestrator struct {
	src  Source
	sink Sink
	hist History
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	running map[int64]bool
	last    map[int64]model.RunStatus
}

func New(src Source, sink Sink, hist History, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Orchestrator{
		src:     src,
		sink:    sink,
		hist:    hist,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		running: make(map[int64]bool),
		last:    make(map[int64]model.RunStatus),
	}
}

// Status returns the latest run state seen by this process for a camp.
func (o *Orchestrator) Status(campID int64) model.RunStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.last[campID]; ok {
		return st
	}
	return model.RunStatus{CampID: campID, State: model.RunIdle}
}

func (o *Orchestrator) acquire(st model.RunStatus) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[st.CampID] {
		return false
	}
	o.running[st.CampID] = true
	o.last[st.CampID] = st
	return true
}

func (o *Orchestrator) release(st model.RunStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, st.CampID)
	o.last[st.CampID] = st
}

// Run recomputes one camp. A non-nil error always comes with a Failed status,
// except ErrRunInProgress, which reports the run already in flight.
func (o *Orchestrator) Run(ctx context.Context, campID int64) (model.RunStatus, error) {
	st := model.RunStatus{RunID: uuid.NewString(), CampID: campID, State: model.RunRunning, StartedAt: o.now()}
	if !o.acquire(st) {
		return o.Status(campID), fmt.Errorf("camp %d: %w", campID, model.ErrRunInProgress)
	}
	metrics.RecomputeInflight.Inc()
	start := time.Now()
	logging.Info("recompute_start", map[string]any{"camp_id": campID, "run_id": st.RunID})

	res, err := o.run(ctx, campID)
	st.Keywords, st.AccountsScored, st.AccountsSkipped = res.keywords, res.scored, res.skipped
	st.FinishedAt = o.now()
	if err != nil {
		st.State, st.Reason = model.RunFailed, err.Error()
	} else {
		st.State = model.RunCompleted
	}

	metrics.RecomputeInflight.Dec()
	metrics.ObserveRecompute(string(st.State), start)
	metrics.AccountsScored.Add(float64(st.AccountsScored))
	metrics.AccountsSkipped.Add(float64(st.AccountsSkipped))
	fields := map[string]any{
		"camp_id": campID, "run_id": st.RunID, "state": st.State, "took": time.Since(start).String(),
		"keywords": st.Keywords, "scored": st.AccountsScored, "skipped": st.AccountsSkipped,
	}
	if err != nil {
		fields["error"] = err.Error()
		logging.Error("recompute_failed", fields)
	} else {
		logging.Info("recompute_done", fields)
	}
	if o.hist != nil {
		if herr := o.hist.RecordRun(context.WithoutCancel(ctx), st); herr != nil {
			logging.Warn("recompute_history_error", map[string]any{"camp_id": campID, "error": herr.Error()})
		}
	}
	o.release(st)
	return st, err
}

// RunAll recomputes every camp one after another. Camps already running are
// skipped. It returns the first failure after attempting every camp.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	var camps []model.Camp
	err := o.withRead(ctx, func(rctx context.Context) error {
		var err error
		camps, err = o.src.ListCamps(rctx)
		return err
	})
	if err != nil {
		return storeErr(ctx, "list camps", err)
	}
	var first error
	for _, c := range camps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := o.Run(ctx, c.ID); err != nil && !errors.Is(err, model.ErrRunInProgress) && first == nil {
			first = err
		}
	}
	return first
}
