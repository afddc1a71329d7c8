package camps

import (
	"context"
	"slices"
	"time"

	"openccp/internal/model"
)

// AccountDetail is the full public profile of a stored account.
type AccountDetail struct {
	model.AccountSummary
	Description    string          `json:"description"`
	FollowingCount int             `json:"following_count"`
	BioSentiment   model.Sentiment `json:"bio_sentiment,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
}

func detail(a model.Account) AccountDetail {
	return AccountDetail{
		AccountSummary: a.Summary(),
		Description:    a.Description,
		FollowingCount: a.FollowingCount,
		BioSentiment:   a.BioSentiment,
		CreatedAt:      a.CreatedAt,
	}
}

type AccountList struct {
	Accounts []AccountDetail `json:"accounts"`
	Total    int             `json:"total"`
}

// ListAccounts returns stored accounts, most followed first.
func (s *Service) ListAccounts(ctx context.Context, seedsOnly bool, limit int) (AccountList, error) {
	rows, err := s.store.ListAccounts(ctx, seedsOnly, limit)
	if err != nil {
		return AccountList{}, err
	}
	out := AccountList{Accounts: make([]AccountDetail, 0, len(rows)), Total: len(rows)}
	for _, a := range rows {
		out.Accounts = append(out.Accounts, detail(a))
	}
	return out, nil
}

// GetAccount looks an account up by username; a leading "@" is ignored.
func (s *Service) GetAccount(ctx context.Context, username string) (AccountDetail, error) {
	a, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		return AccountDetail{}, err
	}
	return detail(a), nil
}

type TweetItem struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
	LikeCount      int             `json:"like_count"`
	RetweetCount   int             `json:"retweet_count"`
	ReplyCount     int             `json:"reply_count"`
	Sentiment      model.Sentiment `json:"sentiment,omitempty"`
	SentimentScore *float64        `json:"sentiment_score,omitempty"`
}

type AccountTweetsView struct {
	Account model.AccountSummary `json:"account"`
	Tweets  []TweetItem          `json:"tweets"`
	Total   int                  `json:"total"`
}

// AccountTweets returns an account's stored tweets, newest first. Total counts
// every stored tweet; limit <= 0 uses the default limit.
func (s *Service) AccountTweets(ctx context.Context, username string, limit int) (AccountTweetsView, error) {
	a, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		return AccountTweetsView{}, err
	}
	tweets, err := s.store.AccountTweets(ctx, a.ID)
	if err != nil {
		return AccountTweetsView{}, err
	}
	slices.Reverse(tweets)
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	out := AccountTweetsView{Account: a.Summary(), Tweets: []TweetItem{}, Total: len(tweets)}
	for _, t := range tweets[:min(limit, len(tweets))] {
		out.Tweets = append(out.Tweets, TweetItem{
			ID:             t.ID,
			Text:           t.Text,
			CreatedAt:      t.CreatedAt,
			LikeCount:      t.LikeCount,
			RetweetCount:   t.RetweetCount,
			ReplyCount:     t.ReplyCount,
			Sentiment:      t.Sentiment,
			SentimentScore: t.SentimentScore,
		})
	}
	return out, nil
}
