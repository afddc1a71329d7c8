// Package rank orders a camp's stored scores into leaderboards and top-tweet lists.
package rank

import (
	"sort"

	"openccp/internal/model"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank       int                  `json:"rank"`
	Account    model.AccountSummary `json:"account"`
	BioScore   float64              `json:"bio_score"`
	TweetScore float64              `json:"tweet_score"`
	TotalScore float64              `json:"total_score"`
	// MatchedTweets is the number of the account's tweets with a positive score.
	MatchedTweets int `json:"matched_tweets"`
}

// Leaderboard ranks accounts with a positive total score. Ties on total break by
// follower count descending, then account id ascending, so every rank is distinct.
// Ranks are 1-based and contiguous. limit <= 0 returns every entry.
func Leaderboard(rows []model.ScoredAccount, limit int) []Entry {
	kept := make([]model.ScoredAccount, 0, len(rows))
	for _, r := range rows {
		if r.Score.TotalScore > 0 {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Score.TotalScore != b.Score.TotalScore {
			return a.Score.TotalScore > b.Score.TotalScore
		}
		if a.Account.FollowersCount != b.Account.FollowersCount {
			return a.Account.FollowersCount > b.Account.FollowersCount
		}
		return model.LessID(a.Score.AccountID, b.Score.AccountID)
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	out := make([]Entry, 0, len(kept))
	for i, r := range kept {
		out = append(out, Entry{
			Rank:          i + 1,
			Account:       r.Account,
			BioScore:      r.Score.BioScore,
			TweetScore:    r.Score.TweetScore,
			TotalScore:    r.Score.TotalScore,
			MatchedTweets: r.Score.MatchedTweets,
		})
	}
	return out
}
