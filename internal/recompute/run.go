package recompute

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"openccp/internal/logging"
	"openccp/internal/model"
	"openccp/internal/scoring"
)

type result struct {
	keywords int
	scored   int
	skipped  int
}

type scanned struct {
	scores  []model.CampScore
	matches []model.TweetMatch
	skipped int
}

func (o *Orchestrator) run(ctx context.Context, campID int64) (result, error) {
	var res result
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	err := o.withRead(ctx, func(rctx context.Context) error {
		_, err := o.src.GetCamp(rctx, campID)
		return err
	})
	if errors.Is(err, model.ErrNotFound) {
		return res, err
	}
	if err != nil {
		return res, storeErr(ctx, "load camp", err)
	}

	var keywords []model.Keyword
	err = o.withRead(ctx, func(rctx context.Context) error {
		var err error
		keywords, err = o.src.CampKeywords(rctx, campID)
		return err
	})
	if err != nil {
		return res, storeErr(ctx, "load keywords", err)
	}
	res.keywords = len(keywords)

	// no criteria: clear prior results
	if len(keywords) == 0 {
		return res, o.commit(ctx, campID, scanned{})
	}

	sc, err := o.scan(ctx, campID, keywords)
	if err != nil {
		return res, err
	}
	res.scored, res.skipped = len(sc.scores), sc.skipped
	return res, o.commit(ctx, campID, sc)
}

// scan scores every account on a bounded worker pool. Accounts whose tweets
// cannot be read are skipped; any other failure aborts the scan.
func (o *Orchestrator) scan(ctx context.Context, campID int64, keywords []model.Keyword) (scanned, error) {
	calc := scoring.NewCalculator(keywords, o.opts.Policy)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	var (
		mu  sync.Mutex
		out scanned
	)
	var iterErr error
	for a, err := range o.src.AccountsForScoring(gctx) {
		if err != nil {
			iterErr = err
			break
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var tweets []model.Tweet
			err := o.withRead(gctx, func(rctx context.Context) error {
				var err error
				tweets, err = o.src.AccountTweets(rctx, a.ID)
				return err
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f := &model.AccountFailure{AccountID: a.ID, Err: err}
				logging.Warn("recompute_account_skipped", map[string]any{"camp_id": campID, "account_id": a.ID, "error": f.Error()})
				mu.Lock()
				out.skipped++
				mu.Unlock()
				return nil
			}
			b := calc.Score(a, tweets)
			mu.Lock()
			defer mu.Unlock()
			out.scores = append(out.scores, model.CampScore{
				CampID:        campID,
				AccountID:     a.ID,
				BioScore:      b.BioScore,
				TweetScore:    b.TweetScore,
				TotalScore:    b.Total,
				MatchedTweets: len(b.Tweets),
				BioMatches:    b.BioMatches,
				TweetMatches:  b.TweetMatches,
			})
			for _, t := range b.Tweets {
				out.matches = append(out.matches, model.TweetMatch{CampID: campID, TweetID: t.TweetID, AccountID: a.ID, Score: t.Score, Terms: t.Terms})
			}
			return nil
		})
	}
	werr := g.Wait()
	if ctx.Err() != nil {
		return out, fmt.Errorf("recompute aborted: %w", ctx.Err())
	}
	if iterErr != nil {
		return out, storeErr(ctx, "iterate accounts", iterErr)
	}
	if werr != nil {
		return out, werr
	}

	sort.Slice(out.scores, func(i, j int) bool { return model.LessID(out.scores[i].AccountID, out.scores[j].AccountID) })
	sort.Slice(out.matches, func(i, j int) bool { return model.LessID(out.matches[i].TweetID, out.matches[j].TweetID) })
	return out, nil
}

func (o *Orchestrator) commit(ctx context.Context, campID int64, sc scanned) error {
	if ctx.Err() != nil {
		return fmt.Errorf("recompute aborted: %w", ctx.Err())
	}
	at := o.now()
	for i := range sc.scores {
		sc.scores[i].ComputedAt = at
	}
	err := o.sink.ReplaceCampResults(ctx, campID, sc.scores, sc.matches, at)
	if err == nil || errors.Is(err, model.ErrNotFound) {
		return err
	}
	return storeErr(ctx, "commit results", err)
}

func (o *Orchestrator) withRead(ctx context.Context, f func(context.Context) error) error {
	if o.opts.ReadTimeout <= 0 {
		return f(ctx)
	}
	rctx, cancel := context.WithTimeout(ctx, o.opts.ReadTimeout)
	defer cancel()
	return f(rctx)
}

// storeErr classifies a collaborator failure. Cancellation of the run itself is
// reported as such; everything else is ErrStoreUnavailable.
func storeErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
}
