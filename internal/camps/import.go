package camps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"openccp/internal/model"
)

// Corpus is the JSON document accepted by Import.
type Corpus struct {
	Accounts []CorpusAccount `json:"accounts"`
	Tweets   []CorpusTweet   `json:"tweets"`
}

type CorpusAccount struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	FollowersCount  int       `json:"followers_count"`
	FollowingCount  int       `json:"following_count"`
	Verified        bool      `json:"verified"`
	ProfileImageURL string    `json:"profile_image_url"`
	IsSeed          bool      `json:"is_seed"`
	CreatedAt       time.Time `json:"created_at"`
	BioSentiment    string    `json:"bio_sentiment"`
}

type CorpusTweet struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	LikeCount      int       `json:"like_count"`
	RetweetCount   int       `json:"retweet_count"`
	ReplyCount     int       `json:"reply_count"`
	Sentiment      string    `json:"sentiment"`
	SentimentScore *float64  `json:"sentiment_score"`
}

// ImportResult counts what Import stored.
type ImportResult struct {
	Accounts int `json:"accounts"`
	Tweets   int `json:"tweets"`
}

// Import loads accounts and tweets from a JSON corpus. The whole document is
// checked before anything is written: every account needs an id and username,
// every tweet an id and an author that is in the document or already stored.
// The corpus is then stored in one transaction.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return ImportResult{}, &model.ConfigError{Field: "corpus", Reason: err.Error()}
	}
	accounts := make([]model.Account, 0, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" || strings.TrimPrefix(a.Username, "@") == "" {
			return ImportResult{}, &model.ConfigError{Field: fmt.Sprintf("accounts[%d]", i), Reason: "id and username are required"}
		}
		accounts = append(accounts, model.Account{
			ID:              a.ID,
			Username:        a.Username,
			Name:            a.Name,
			Description:     a.Description,
			FollowersCount:  a.FollowersCount,
			FollowingCount:  a.FollowingCount,
			Verified:        a.Verified,
			ProfileImageURL: a.ProfileImageURL,
			IsSeed:          a.IsSeed,
			CreatedAt:       a.CreatedAt,
			BioSentiment:    model.ParseObserved(a.BioSentiment),
		})
	}
	tweets := make([]model.Tweet, 0, len(c.Tweets))
	for i, t := range c.Tweets {
		if t.ID == "" || t.AccountID == "" {
			return ImportResult{}, &model.ConfigError{Field: fmt.Sprintf("tweets[%d]", i), Reason: "id and account_id are required"}
		}
		tweets = append(tweets, model.Tweet{
			ID:             t.ID,
			AccountID:      t.AccountID,
			Text:           t.Text,
			CreatedAt:      t.CreatedAt,
			LikeCount:      t.LikeCount,
			RetweetCount:   t.RetweetCount,
			ReplyCount:     t.ReplyCount,
			Sentiment:      model.ParseObserved(t.Sentiment),
			SentimentScore: t.SentimentScore,
		})
	}
	if err := s.store.ImportCorpus(ctx, accounts, tweets); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Accounts: len(accounts), Tweets: len(tweets)}, nil
}
