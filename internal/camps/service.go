// Package camps is the read/write service behind the API and CLI: camp and
// keyword CRUD, leaderboards and top tweets read from the last committed recompute.
package camps

import (
	"context"
	"strconv"
	"strings"
	"time"

	"openccp/internal/model"
	"openccp/internal/rank"
)

// Store is the persistence the service reads and writes.
type Store interface {
	CreateCamp(ctx context.Context, c model.Camp) (model.Camp, error)
	GetCamp(ctx context.Context, id int64) (model.Camp, error)
	GetCampBySlug(ctx context.Context, slug string) (model.Camp, error)
	ListCamps(ctx context.Context) ([]model.Camp, error)
	DeleteCamp(ctx context.Context, id int64) error
	AddKeyword(ctx context.Context, k model.Keyword) (model.Keyword, error)
	DeleteKeyword(ctx context.Context, id int64) (int64, error)
	CampKeywords(ctx context.Context, campID int64) ([]model.Keyword, error)
	CampScores(ctx context.Context, campID int64) ([]model.ScoredAccount, error)
	CampTweetMatches(ctx context.Context, campID int64) ([]model.MatchedTweet, error)
	AccountScores(ctx context.Context, accountID string) ([]model.ScoredAccount, error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
	ListAccounts(ctx context.Context, seedsOnly bool, limit int) ([]model.Account, error)
	AccountTweets(ctx context.Context, accountID string) ([]model.Tweet, error)
	ImportCorpus(ctx context.Context, accounts []model.Account, tweets []model.Tweet) error
	Runs(ctx context.Context, campID int64, limit int) ([]model.RunStatus, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Recomputer runs and reports camp recomputes.
type Recomputer interface {
	Run(ctx context.Context, campID int64) (model.RunStatus, error)
	Status(campID int64) model.RunStatus
}

// Trigger accepts fire-and-forget recompute requests.
type Trigger interface {
	Submit(campID int64) bool
}

type Options struct {
	Bounds         model.WeightBounds
	DefaultLimit   int
	TopTweetsLimit int
	ExcerptChars   int
}

type Service struct {
	store   Store
	rec     Recomputer
	trigger Trigger
	opts    Options
}

// New returns a service. trigger may be nil, in which case keyword edits take
// effect at the next explicit or scheduled recompute.
func New(store Store, rec Recomputer, trigger Trigger, opts Options) *Service {
	if opts.Bounds == (model.WeightBounds{}) {
		opts.Bounds = model.DefaultWeightBounds()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 20
	}
	if opts.TopTweetsLimit <= 0 {
		opts.TopTweetsLimit = 10
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = 280
	}
	return &Service{store: store, rec: rec, trigger: trigger, opts: opts}
}

func (s *Service) CreateCamp(ctx context.Context, name, description, color string) (model.Camp, error) {
	c, err := model.NewCamp(name, description, color)
	if err != nil {
		return c, err
	}
	return s.store.CreateCamp(ctx, c)
}

func (s *Service) ListCamps(ctx context.Context) ([]model.Camp, error) {
	return s.store.ListCamps(ctx)
}

// GetCamp resolves a camp by numeric id or by slug.
func (s *Service) GetCamp(ctx context.Context, ref string) (model.Camp, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.store.GetCamp(ctx, id)
	}
	return s.store.GetCampBySlug(ctx, ref)
}

func (s *Service) DeleteCamp(ctx context.Context, id int64) error {
	return s.store.DeleteCamp(ctx, id)
}

// AddKeyword validates and stores a keyword, then asks for a recompute of its camp.
func (s *Service) AddKeyword(ctx context.Context, campID int64, term string, weight float64, sentiment string) (model.Keyword, error) {
	k, err := model.NewKeyword(campID, term, weight, sentiment, s.opts.Bounds)
	if err != nil {
		return k, err
	}
	k, err = s.store.AddKeyword(ctx, k)
	if err != nil {
		return k, err
	}
	s.submit(campID)
	return k, nil
}

func (s *Service) DeleteKeyword(ctx context.Context, id int64) error {
	campID, err := s.store.DeleteKeyword(ctx, id)
	if err != nil {
		return err
	}
	s.submit(campID)
	return nil
}

func (s *Service) submit(campID int64) {
	if s.trigger != nil {
		s.trigger.Submit(campID)
	}
}

func (s *Service) ListKeywords(ctx context.Context, campID int64) ([]model.Keyword, error) {
	if _, err := s.store.GetCamp(ctx, campID); err != nil {
		return nil, err
	}
	kws, err := s.store.CampKeywords(ctx, campID)
	if kws == nil {
		kws = []model.Keyword{}
	}
	return kws, err
}

// LeaderboardView is a ranked leaderboard. ComputedAt is nil until the camp's
// first successful recompute, so an empty board is distinguishable from one
// that was never computed.
type LeaderboardView struct {
	Camp       model.Camp   `json:"camp"`
	ComputedAt *time.Time   `json:"computed_at"`
	Entries    []rank.Entry `json:"entries"`
}

func (s *Service) Leaderboard(ctx context.Context, campID int64, limit int) (LeaderboardView, error) {
	c, err := s.store.GetCamp(ctx, campID)
	if err != nil {
		return LeaderboardView{}, err
	}
	rows, err := s.store.CampScores(ctx, campID)
	if err != nil {
		return LeaderboardView{}, err
	}
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	return LeaderboardView{Camp: c, ComputedAt: c.ScoredAt, Entries: rank.Leaderboard(rows, limit)}, nil
}

type TweetsView struct {
	Camp       model.Camp        `json:"camp"`
	ComputedAt *time.Time        `json:"computed_at"`
	Tweets     []rank.TweetEntry `json:"tweets"`
}

func (s *Service) TopTweets(ctx context.Context, campID int64, limit int) (TweetsView, error) {
	c, err := s.store.GetCamp(ctx, campID)
	if err != nil {
		return TweetsView{}, err
	}
	matches, err := s.store.CampTweetMatches(ctx, campID)
	if err != nil {
		return TweetsView{}, err
	}
	if limit <= 0 {
		limit = s.opts.TopTweetsLimit
	}
	return TweetsView{Camp: c, ComputedAt: c.ScoredAt, Tweets: rank.TopTweets(matches, limit, s.opts.ExcerptChars)}, nil
}

// Recompute runs a camp recompute synchronously.
func (s *Service) Recompute(ctx context.Context, campID int64) (model.RunStatus, error) {
	return s.rec.Run(ctx, campID)
}

// RecomputeStatus reports the in-process run state, falling back to the last
// recorded run when this process has not run the camp yet.
func (s *Service) RecomputeStatus(ctx context.Context, campID int64) (model.RunStatus, error) {
	if _, err := s.store.GetCamp(ctx, campID); err != nil {
		return model.RunStatus{}, err
	}
	st := s.rec.Status(campID)
	if st.State != model.RunIdle {
		return st, nil
	}
	runs, err := s.store.Runs(ctx, campID, 1)
	if err != nil || len(runs) == 0 {
		return st, err
	}
	return runs[0], nil
}

// AccountCampScore is one account's score in one camp.
type AccountCampScore struct {
	CampID        int64             `json:"camp_id"`
	CampName      string            `json:"camp_name"`
	CampSlug      string            `json:"camp_slug"`
	Color         string            `json:"color"`
	BioScore      float64           `json:"bio_score"`
	TweetScore    float64           `json:"tweet_score"`
	TotalScore    float64           `json:"total_score"`
	MatchedTweets int               `json:"matched_tweets"`
	BioMatches    []model.TermCount `json:"bio_matches"`
	TweetMatches  []model.TermCount `json:"tweet_matches"`
	ComputedAt    time.Time         `json:"computed_at"`
}

type AccountScoresView struct {
	Account model.AccountSummary `json:"account"`
	Scores  []AccountCampScore   `json:"scores"`
}

// AccountScores lists an account's positive scores across camps.
func (s *Service) AccountScores(ctx context.Context, username string) (AccountScoresView, error) {
	a, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		return AccountScoresView{}, err
	}
	rows, err := s.store.AccountScores(ctx, a.ID)
	if err != nil {
		return AccountScoresView{}, err
	}
	camps, err := s.store.ListCamps(ctx)
	if err != nil {
		return AccountScoresView{}, err
	}
	byID := make(map[int64]model.Camp, len(camps))
	for _, c := range camps {
		byID[c.ID] = c
	}
	out := AccountScoresView{Account: a.Summary(), Scores: []AccountCampScore{}}
	for _, r := range rows {
		c, ok := byID[r.Score.CampID]
		if !ok || r.Score.TotalScore <= 0 {
			continue
		}
		out.Scores = append(out.Scores, AccountCampScore{
			CampID:        c.ID,
			CampName:      c.Name,
			CampSlug:      c.Slug,
			Color:         c.Color,
			BioScore:      r.Score.BioScore,
			TweetScore:    r.Score.TweetScore,
			TotalScore:    r.Score.TotalScore,
			MatchedTweets: r.Score.MatchedTweets,
			BioMatches:    r.Score.BioMatches,
			TweetMatches:  r.Score.TweetMatches,
			ComputedAt:    r.Score.ComputedAt,
		})
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	return s.store.Stats(ctx)
}
