// Package sqlite persists camps, keywords, the account/tweet corpus and derived
// camp scores in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"openccp/internal/model"
)

// DB wraps the SQLite database. It holds a single connection, so every query
// must drain its rows before the next one starts.
type DB struct {
	sql *sql.DB
	// pageTimeout bounds each AccountsForScoring page read. 0 disables it.
	pageTimeout time.Duration
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

// SetReadTimeout bounds every account page read during scoring iteration.
func (d *DB) SetReadTimeout(t time.Duration) { d.pageTimeout = t }

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error { return d.sql.PingContext(ctx) }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS camps (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  name TEXT NOT NULL UNIQUE,
	  slug TEXT NOT NULL UNIQUE,
	  description TEXT NOT NULL DEFAULT '',
	  color TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  scored_at INTEGER
	);
	CREATE TABLE IF NOT EXISTS keywords (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  camp_id INTEGER NOT NULL,
	  term TEXT NOT NULL,
	  term_key TEXT NOT NULL,
	  weight REAL NOT NULL CHECK (weight > 0),
	  sentiment TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  UNIQUE (camp_id, term_key)
	);
	CREATE INDEX IF NOT EXISTS idx_keywords_camp ON keywords(camp_id);
	CREATE TABLE IF NOT EXISTS accounts (
	  id TEXT PRIMARY KEY,
	  username TEXT NOT NULL UNIQUE,
	  name TEXT NOT NULL DEFAULT '',
	  description TEXT NOT NULL DEFAULT '',
	  followers_count INTEGER NOT NULL DEFAULT 0,
	  following_count INTEGER NOT NULL DEFAULT 0,
	  verified INTEGER NOT NULL DEFAULT 0,
	  profile_image_url TEXT NOT NULL DEFAULT '',
	  is_seed INTEGER NOT NULL DEFAULT 0,
	  bio_sentiment TEXT NOT NULL DEFAULT '',
	  created_at INTEGER,
	  updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tweets (
	  id TEXT PRIMARY KEY,
	  account_id TEXT NOT NULL,
	  text TEXT NOT NULL DEFAULT '',
	  created_at INTEGER,
	  like_count INTEGER NOT NULL DEFAULT 0,
	  retweet_count INTEGER NOT NULL DEFAULT 0,
	  reply_count INTEGER NOT NULL DEFAULT 0,
	  sentiment TEXT NOT NULL DEFAULT '',
	  sentiment_score REAL
	);
	CREATE INDEX IF NOT EXISTS idx_tweets_account ON tweets(account_id);
	CREATE TABLE IF NOT EXISTS camp_scores (
	  camp_id INTEGER NOT NULL,
	  account_id TEXT NOT NULL,
	  bio_score REAL NOT NULL,
	  tweet_score REAL NOT NULL,
	  total_score REAL NOT NULL,
	  matched_tweets INTEGER NOT NULL DEFAULT 0,
	  match_details TEXT,
	  computed_at INTEGER NOT NULL,
	  PRIMARY KEY (camp_id, account_id)
	);
	CREATE INDEX IF NOT EXISTS idx_camp_scores_account ON camp_scores(account_id);
	CREATE TABLE IF NOT EXISTS tweet_matches (
	  camp_id INTEGER NOT NULL,
	  tweet_id TEXT NOT NULL,
	  account_id TEXT NOT NULL,
	  score REAL NOT NULL,
	  terms TEXT NOT NULL,
	  PRIMARY KEY (camp_id, tweet_id)
	);
	CREATE TABLE IF NOT EXISTS recompute_runs (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  run_id TEXT NOT NULL,
	  camp_id INTEGER NOT NULL,
	  state TEXT NOT NULL,
	  reason TEXT NOT NULL DEFAULT '',
	  keywords INTEGER NOT NULL DEFAULT 0,
	  accounts_scored INTEGER NOT NULL DEFAULT 0,
	  accounts_skipped INTEGER NOT NULL DEFAULT 0,
	  started_at INTEGER NOT NULL,
	  finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_camp ON recompute_runs(camp_id, id);
	`)
	return err
}

// Stats counts camps, keywords and the corpus.
func (d *DB) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	row := d.sql.QueryRowContext(ctx, `SELECT
	  (SELECT COUNT(*) FROM camps),
	  (SELECT COUNT(*) FROM keywords),
	  (SELECT COUNT(*) FROM accounts),
	  (SELECT COUNT(*) FROM accounts WHERE is_seed=1),
	  (SELECT COUNT(*) FROM tweets)`)
	err := row.Scan(&s.Camps, &s.Keywords, &s.Accounts, &s.Seeds, &s.Tweets)
	return s, err
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return err
}

func unixOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func fromUnix(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
