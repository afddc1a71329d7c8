package model

import "time"

// Camp is a named topical cohort scored by a weighted keyword set.
type Camp struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	// ScoredAt is the commit time of the last successful recompute, nil if never computed.
	ScoredAt *time.Time `json:"scored_at"`
}

// Keyword is a weighted, sentiment-scoped search term owned by one camp.
type Keyword struct {
	ID        int64     `json:"id"`
	CampID    int64     `json:"camp_id"`
	Term      string    `json:"term"`
	Weight    float64   `json:"weight"`
	Sentiment Sentiment `json:"sentiment"` // expected sentiment: positive, negative or any
	CreatedAt time.Time `json:"created_at"`
}

// Account represents the subset of X profile fields the scorer reads.
type Account struct {
	ID              string
	Username        string
	Name            string
	Description     string
	FollowersCount  int
	FollowingCount  int
	Verified        bool
	ProfileImageURL string
	IsSeed          bool
	CreatedAt       time.Time
	// BioSentiment is empty when the bio sentiment is not tracked.
	BioSentiment Sentiment
}

// Tweet represents a stored tweet with its externally supplied sentiment.
type Tweet struct {
	ID           string
	AccountID    string
	Text         string
	CreatedAt    time.Time
	LikeCount    int
	RetweetCount int
	ReplyCount   int
	Sentiment    Sentiment
	// SentimentScore is an optional compound polarity in [-1,1].
	SentimentScore *float64
}

// TermCount records how many times a keyword term fired.
type TermCount struct {
	Term   string  `json:"term"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// CampScore is the derived per-(camp, account) aggregate.
type CampScore struct {
	CampID        int64
	AccountID     string
	BioScore      float64
	TweetScore    float64
	TotalScore    float64
	MatchedTweets int
	BioMatches    []TermCount
	TweetMatches  []TermCount
	ComputedAt    time.Time
}

// TweetMatch is the derived per-(camp, tweet) score with the keywords that fired.
type TweetMatch struct {
	CampID    int64
	TweetID   string
	AccountID string
	Score     float64
	Terms     []string
}

// AccountSummary is the public display subset of an account.
type AccountSummary struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	FollowersCount  int    `json:"followers_count"`
	Verified        bool   `json:"verified"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	IsSeed          bool   `json:"is_seed"`
}

// Summary returns the display fields of a.
func (a Account) Summary() AccountSummary {
	return AccountSummary{
		ID:              a.ID,
		Username:        a.Username,
		Name:            a.Name,
		FollowersCount:  a.FollowersCount,
		Verified:        a.Verified,
		ProfileImageURL: a.ProfileImageURL,
		IsSeed:          a.IsSeed,
	}
}

// ScoredAccount joins a stored CampScore with its account's display fields.
type ScoredAccount struct {
	Score   CampScore
	Account AccountSummary
}

// MatchedTweet joins a stored TweetMatch with its tweet and author.
type MatchedTweet struct {
	Match   TweetMatch
	Tweet   Tweet
	Account AccountSummary
}

// Stats are corpus and configuration counts.
type Stats struct {
	Camps    int `json:"camps"`
	Keywords int `json:"keywords"`
	Accounts int `json:"accounts"`
	Seeds    int `json:"seeds"`
	Tweets   int `json:"tweets"`
}
