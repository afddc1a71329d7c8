package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"openccp/internal/model"
)

// accountPage is how many accounts AccountsForScoring reads per query.
const accountPage = 256

const accountCols = `id, username, name, description, followers_count, following_count, verified, profile_image_url, is_seed, bio_sentiment, created_at`

func scanAccount(sc interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	var verified, seed int
	var bs string
	var created sql.NullInt64
	err := sc.Scan(&a.ID, &a.Username, &a.Name, &a.Description, &a.FollowersCount, &a.FollowingCount,
		&verified, &a.ProfileImageURL, &seed, &bs, &created)
	a.Verified = verified == 1
	a.IsSeed = seed == 1
	a.BioSentiment = model.Sentiment(bs)
	a.CreatedAt = fromUnix(created)
	return a, err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertAccount inserts or refreshes an account profile. An existing seed flag is never cleared.
func (d *DB) UpsertAccount(ctx context.Context, a model.Account) error {
	return upsertAccount(ctx, d.sql, a)
}

func upsertAccount(ctx context.Context, ex execer, a model.Account) error {
	if a.ID == "" || a.Username == "" {
		return &model.ConfigError{Field: "account", Reason: "id and username are required"}
	}
	_, err := ex.ExecContext(ctx, `INSERT INTO accounts(`+accountCols+`, updated_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET username=excluded.username, name=excluded.name, description=excluded.description,
	  followers_count=excluded.followers_count, following_count=excluded.following_count, verified=excluded.verified,
	  profile_image_url=excluded.profile_image_url, is_seed=MAX(accounts.is_seed, excluded.is_seed),
	  bio_sentiment=excluded.bio_sentiment, created_at=COALESCE(excluded.created_at, accounts.created_at),
	  updated_at=excluded.updated_at`,
		a.ID, strings.TrimPrefix(a.Username, "@"), a.Name, a.Description, a.FollowersCount, a.FollowingCount,
		boolInt(a.Verified), a.ProfileImageURL, boolInt(a.IsSeed), string(a.BioSentiment), unixOrNil(a.CreatedAt),
		time.Now().Unix())
	if isUnique(err) {
		return fmt.Errorf("username %q: %w", a.Username, model.ErrConflict)
	}
	return err
}

func (d *DB) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	u := strings.TrimPrefix(username, "@")
	a, err := scanAccount(d.sql.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE username=? COLLATE NOCASE`, u))
	return a, notFound(err, fmt.Sprintf("account %q", u))
}

// PutTweet inserts or refreshes a tweet. Its author must already be stored.
func (d *DB) PutTweet(ctx context.Context, t model.Tweet) error {
	return putTweet(ctx, d.sql, t)
}

func putTweet(ctx context.Context, ex execer, t model.Tweet) error {
	if t.ID == "" || t.AccountID == "" {
		return &model.ConfigError{Field: "tweet", Reason: "id and account id are required"}
	}
	var score any
	if t.SentimentScore != nil {
		score = *t.SentimentScore
	}
	_, err := ex.ExecContext(ctx, `INSERT INTO tweets(id, account_id, text, created_at, like_count, retweet_count, reply_count, sentiment, sentiment_score)
	VALUES(?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET text=excluded.text, like_count=excluded.like_count, retweet_count=excluded.retweet_count,
	  reply_count=excluded.reply_count, sentiment=excluded.sentiment, sentiment_score=excluded.sentiment_score`,
		t.ID, t.AccountID, t.Text, unixOrNil(t.CreatedAt), t.LikeCount, t.RetweetCount, t.ReplyCount, string(t.Sentiment), score)
	return err
}

// ImportCorpus stores accounts and then tweets in one transaction. A tweet
// whose author is neither in accounts nor already stored is a ConfigError, and
// any failure leaves the store unchanged.
func (d *DB) ImportCorpus(ctx context.Context, accounts []model.Account, tweets []model.Tweet) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, a := range accounts {
		if err := upsertAccount(ctx, tx, a); err != nil {
			return fmt.Errorf("account %q: %w", a.Username, err)
		}
	}
	for _, t := range tweets {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id=?`, t.AccountID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return &model.ConfigError{Field: "tweet " + t.ID, Reason: "unknown account_id " + t.AccountID}
		}
		if err != nil {
			return err
		}
		if err := putTweet(ctx, tx, t); err != nil {
			return fmt.Errorf("tweet %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// GetAccount returns an account by platform id.
func (d *DB) GetAccount(ctx context.Context, id string) (model.Account, error) {
	a, err := scanAccount(d.sql.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=?`, id))
	return a, notFound(err, fmt.Sprintf("account %s", id))
}

// ListAccounts returns accounts by followers descending, then id. limit <= 0
// means no limit.
func (d *DB) ListAccounts(ctx context.Context, seedsOnly bool, limit int) ([]model.Account, error) {
	q := `SELECT ` + accountCols + ` FROM accounts`
	if seedsOnly {
		q += ` WHERE is_seed=1`
	}
	q += ` ORDER BY followers_count DESC, id`
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.sql.QueryContext(ctx, q+` LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountTweets returns every stored tweet of an account, oldest first.
func (d *DB) AccountTweets(ctx context.Context, accountID string) ([]model.Tweet, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, account_id, text, created_at, like_count, retweet_count, reply_count, sentiment, sentiment_score
	FROM tweets WHERE account_id=? ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTweet(sc interface{ Scan(...any) error }) (model.Tweet, error) {
	var t model.Tweet
	var s string
	var created sql.NullInt64
	var score sql.NullFloat64
	err := sc.Scan(&t.ID, &t.AccountID, &t.Text, &created, &t.LikeCount, &t.RetweetCount, &t.ReplyCount, &s, &score)
	t.Sentiment = model.Sentiment(s)
	t.CreatedAt = fromUnix(created)
	if score.Valid {
		v := score.Float64
		t.SentimentScore = &v
	}
	return t, err
}

// AccountsForScoring yields every seed account and every account with at least
// one stored tweet, in id order. Pages are read and closed before they are
// yielded, so the caller may query the store while iterating.
func (d *DB) AccountsForScoring(ctx context.Context) iter.Seq2[model.Account, error] {
	return func(yield func(model.Account, error) bool) {
		after := ""
		for {
			page, err := d.accountPage(ctx, after)
			if err != nil {
				yield(model.Account{}, err)
				return
			}
			for _, a := range page {
				if !yield(a, nil) {
					return
				}
			}
			if len(page) < accountPage {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

func (d *DB) accountPage(ctx context.Context, after string) ([]model.Account, error) {
	if d.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.pageTimeout)
		defer cancel()
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT `+accountCols+` FROM accounts a
	WHERE a.id > ? AND (a.is_seed=1 OR EXISTS (SELECT 1 FROM tweets t WHERE t.account_id=a.id))
	ORDER BY a.id LIMIT ?`, after, accountPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Account, 0, accountPage)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
