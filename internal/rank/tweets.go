package rank

import (
	"sort"
	"time"

	"openccp/internal/model"
	"openccp/internal/util"
)

// TweetEntry is one row of a camp's top tweets.
type TweetEntry struct {
	TweetID         string               `json:"tweet_id"`
	Excerpt         string               `json:"excerpt"`
	CreatedAt       time.Time            `json:"created_at"`
	LikeCount       int                  `json:"like_count"`
	RetweetCount    int                  `json:"retweet_count"`
	Account         model.AccountSummary `json:"account"`
	Score           float64              `json:"score"`
	MatchedKeywords []string             `json:"matched_keywords"`
}

// TopTweets orders matches by score descending, then newest first, then tweet id
// ascending, and returns at most limit entries (limit <= 0 returns all).
// Excerpts are cut to excerptChars runes.
func TopTweets(matches []model.MatchedTweet, limit, excerptChars int) []TweetEntry {
	sorted := make([]model.MatchedTweet, 0, len(matches))
	for _, m := range matches {
		if m.Match.Score > 0 {
			sorted = append(sorted, m)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Match.Score != b.Match.Score {
			return a.Match.Score > b.Match.Score
		}
		if !a.Tweet.CreatedAt.Equal(b.Tweet.CreatedAt) {
			return a.Tweet.CreatedAt.After(b.Tweet.CreatedAt)
		}
		return model.LessID(a.Match.TweetID, b.Match.TweetID)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]TweetEntry, 0, len(sorted))
	for _, m := range sorted {
		terms := m.Match.Terms
		if terms == nil {
			terms = []string{}
		}
		out = append(out, TweetEntry{
			TweetID:         m.Match.TweetID,
			Excerpt:         util.Excerpt(m.Tweet.Text, excerptChars),
			CreatedAt:       m.Tweet.CreatedAt,
			LikeCount:       m.Tweet.LikeCount,
			RetweetCount:    m.Tweet.RetweetCount,
			Account:         m.Account,
			Score:           m.Match.Score,
			MatchedKeywords: terms,
		})
	}
	return out
}
