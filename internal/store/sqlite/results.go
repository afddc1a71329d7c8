package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"openccp/internal/model"
)

type matchDetails struct {
	Bio    []model.TermCount `json:"bio,omitempty"`
	Tweets []model.TermCount `json:"tweets,omitempty"`
}

// ReplaceCampResults swaps a camp's scores and tweet matches for a fresh set and
// stamps camps.scored_at, all in one transaction. Readers see either the previous
// result set or the new one.
func (d *DB) ReplaceCampResults(ctx context.Context, campID int64, scores []model.CampScore, matches []model.TweetMatch, at time.Time) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE camps SET scored_at=? WHERE id=?`, at.Unix(), campID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("camp %d: %w", campID, model.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM camp_scores WHERE camp_id=?`, campID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tweet_matches WHERE camp_id=?`, campID); err != nil {
		return err
	}

	for _, s := range scores {
		details, err := json.Marshal(matchDetails{Bio: s.BioMatches, Tweets: s.TweetMatches})
		if err != nil {
			return err
		}
		computed := s.ComputedAt
		if computed.IsZero() {
			computed = at
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO camp_scores(camp_id, account_id, bio_score, tweet_score, total_score, matched_tweets, match_details, computed_at)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(camp_id, account_id) DO UPDATE SET bio_score=excluded.bio_score, tweet_score=excluded.tweet_score,
		  total_score=excluded.total_score, matched_tweets=excluded.matched_tweets, match_details=excluded.match_details,
		  computed_at=excluded.computed_at`,
			campID, s.AccountID, s.BioScore, s.TweetScore, s.TotalScore, s.MatchedTweets, string(details), computed.Unix()); err != nil {
			return err
		}
	}
	for _, m := range matches {
		terms, err := json.Marshal(m.Terms)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tweet_matches(camp_id, tweet_id, account_id, score, terms) VALUES(?,?,?,?,?)
		ON CONFLICT(camp_id, tweet_id) DO UPDATE SET account_id=excluded.account_id, score=excluded.score, terms=excluded.terms`,
			campID, m.TweetID, m.AccountID, m.Score, string(terms)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const scoreCols = `s.camp_id, s.account_id, s.bio_score, s.tweet_score, s.total_score, s.matched_tweets, s.match_details, s.computed_at,
  a.id, a.username, a.name, a.followers_count, a.verified, a.profile_image_url, a.is_seed`

func scanScored(sc interface{ Scan(...any) error }) (model.ScoredAccount, error) {
	var r model.ScoredAccount
	var details sql.NullString
	var computed sql.NullInt64
	var verified, seed int
	err := sc.Scan(&r.Score.CampID, &r.Score.AccountID, &r.Score.BioScore, &r.Score.TweetScore, &r.Score.TotalScore,
		&r.Score.MatchedTweets, &details, &computed,
		&r.Account.ID, &r.Account.Username, &r.Account.Name, &r.Account.FollowersCount, &verified, &r.Account.ProfileImageURL, &seed)
	if err != nil {
		return r, err
	}
	r.Account.Verified = verified == 1
	r.Account.IsSeed = seed == 1
	r.Score.ComputedAt = fromUnix(computed)
	if details.Valid && details.String != "" {
		var md matchDetails
		if err := json.Unmarshal([]byte(details.String), &md); err != nil {
			return r, err
		}
		r.Score.BioMatches, r.Score.TweetMatches = md.Bio, md.Tweets
	}
	return r, nil
}

// CampScores returns every stored score row of a camp joined with its account.
// Rows are unordered; ranking is done by the caller.
func (d *DB) CampScores(ctx context.Context, campID int64) ([]model.ScoredAccount, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+scoreCols+` FROM camp_scores s JOIN accounts a ON a.id=s.account_id WHERE s.camp_id=?`, campID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScoredAccount
	for rows.Next() {
		r, err := scanScored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AccountScores returns an account's stored score in every camp, by camp id.
func (d *DB) AccountScores(ctx context.Context, accountID string) ([]model.ScoredAccount, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+scoreCols+` FROM camp_scores s JOIN accounts a ON a.id=s.account_id
	WHERE s.account_id=? ORDER BY s.camp_id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScoredAccount
	for rows.Next() {
		r, err := scanScored(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CampTweetMatches returns a camp's matched tweets joined with tweet and author.
func (d *DB) CampTweetMatches(ctx context.Context, campID int64) ([]model.MatchedTweet, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT m.camp_id, m.tweet_id, m.account_id, m.score, m.terms,
	  t.id, t.account_id, t.text, t.created_at, t.like_count, t.retweet_count, t.reply_count, t.sentiment, t.sentiment_score,
	  a.id, a.username, a.name, a.followers_count, a.verified, a.profile_image_url, a.is_seed
	FROM tweet_matches m
	JOIN tweets t ON t.id=m.tweet_id
	JOIN accounts a ON a.id=m.account_id
	WHERE m.camp_id=?`, campID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MatchedTweet
	for rows.Next() {
		var r model.MatchedTweet
		var terms, sent string
		var created sql.NullInt64
		var score sql.NullFloat64
		var verified, seed int
		if err := rows.Scan(&r.Match.CampID, &r.Match.TweetID, &r.Match.AccountID, &r.Match.Score, &terms,
			&r.Tweet.ID, &r.Tweet.AccountID, &r.Tweet.Text, &created, &r.Tweet.LikeCount, &r.Tweet.RetweetCount, &r.Tweet.ReplyCount, &sent, &score,
			&r.Account.ID, &r.Account.Username, &r.Account.Name, &r.Account.FollowersCount, &verified, &r.Account.ProfileImageURL, &seed); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(terms), &r.Match.Terms); err != nil {
			return nil, err
		}
		r.Tweet.CreatedAt = fromUnix(created)
		r.Tweet.Sentiment = model.Sentiment(sent)
		if score.Valid {
			v := score.Float64
			r.Tweet.SentimentScore = &v
		}
		r.Account.Verified = verified == 1
		r.Account.IsSeed = seed == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordRun appends a finished run to the camp's history.
func (d *DB) RecordRun(ctx context.Context, r model.RunStatus) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO recompute_runs(run_id, camp_id, state, reason, keywords, accounts_scored, accounts_skipped, started_at, finished_at)
	VALUES(?,?,?,?,?,?,?,?,?)`, r.RunID, r.CampID, string(r.State), strings.TrimSpace(r.Reason), r.Keywords, r.AccountsScored, r.AccountsSkipped,
		r.StartedAt.Unix(), r.FinishedAt.Unix())
	return err
}

// Runs returns the most recent runs of a camp, newest first.
func (d *DB) Runs(ctx context.Context, campID int64, limit int) ([]model.RunStatus, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT run_id, camp_id, state, reason, keywords, accounts_scored, accounts_skipped, started_at, finished_at
	FROM recompute_runs WHERE camp_id=? ORDER BY id DESC LIMIT ?`, campID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RunStatus
	for rows.Next() {
		var r model.RunStatus
		var state string
		var started, finished sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.CampID, &state, &r.Reason, &r.Keywords, &r.AccountsScored, &r.AccountsSkipped, &started, &finished); err != nil {
			return nil, err
		}
		r.State = model.RunState(state)
		r.StartedAt, r.FinishedAt = fromUnix(started), fromUnix(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
