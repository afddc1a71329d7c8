package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"openccp/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCampsAndKeywords(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	c, err := db.CreateCamp(ctx, model.Camp{Name: "Bitcoin Maxis", Color: "#f7931a"})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == 0 || c.Slug != "bitcoin-maxis" {
		t.Fatalf("unexpected camp: %+v", c)
	}
	if _, err := db.CreateCamp(ctx, model.Camp{Name: "Bitcoin Maxis", Color: "#000000"}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, err := db.GetCampBySlug(ctx, "Bitcoin-Maxis")
	if err != nil || got.ID != c.ID || got.ScoredAt != nil {
		t.Fatalf("slug lookup: %v %+v", err, got)
	}

	k, err := db.AddKeyword(ctx, model.Keyword{CampID: c.ID, Term: "Bitcoin", Weight: 2, Sentiment: model.SentimentAny})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddKeyword(ctx, model.Keyword{CampID: c.ID, Term: "bitcoin", Weight: 1, Sentiment: model.SentimentAny}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected case-insensitive term conflict, got %v", err)
	}
	if _, err := db.AddKeyword(ctx, model.Keyword{CampID: 999, Term: "x", Weight: 1, Sentiment: model.SentimentAny}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for missing camp, got %v", err)
	}
	kws, err := db.CampKeywords(ctx, c.ID)
	if err != nil || len(kws) != 1 || kws[0].Term != "Bitcoin" || kws[0].Weight != 2 {
		t.Fatalf("keywords: %v %+v", err, kws)
	}
	campID, err := db.DeleteKeyword(ctx, k.ID)
	if err != nil || campID != c.ID {
		t.Fatalf("delete keyword: %v %d", err, campID)
	}
	if _, err := db.DeleteKeyword(ctx, k.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountsForScoringPagesAndFilters(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	// seeds without tweets, non-seeds with tweets, non-seeds without tweets
	n := accountPage + 10
	for i := 0; i < n; i++ {
		a := model.Account{ID: fmt.Sprintf("%04d", i), Username: fmt.Sprintf("user%d", i)}
		a.IsSeed = i%3 == 0
		if err := db.UpsertAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
		if i%3 == 1 {
			if err := db.PutTweet(ctx, model.Tweet{ID: "t" + a.ID, AccountID: a.ID, Text: "hi", CreatedAt: time.Unix(1700000000, 0)}); err != nil {
				t.Fatal(err)
			}
		}
	}
	want := 0
	for i := 0; i < n; i++ {
		if i%3 != 2 {
			want++
		}
	}
	got := 0
	prev := ""
	for a, err := range db.AccountsForScoring(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		if a.ID <= prev {
			t.Fatalf("ids not ascending: %s after %s", a.ID, prev)
		}
		prev = a.ID
		// the store stays usable while iterating
		if _, err := db.AccountTweets(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
		got++
	}
	if got != want {
		t.Fatalf("got %d accounts, want %d", got, want)
	}
}

func TestUpsertAccountKeepsSeedFlag(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if err := db.UpsertAccount(ctx, model.Account{ID: "1", Username: "alice", IsSeed: true}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertAccount(ctx, model.Account{ID: "1", Username: "alice", Description: "new bio", FollowersCount: 5}); err != nil {
		t.Fatal(err)
	}
	a, err := db.GetAccountByUsername(ctx, "@Alice")
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsSeed || a.Description != "new bio" || a.FollowersCount != 5 {
		t.Fatalf("unexpected account: %+v", a)
	}
}

func TestReplaceCampResultsSwapsAtomically(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	c, err := db.CreateCamp(ctx, model.Camp{Name: "Rust", Color: "#b7410e"})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1", "2"} {
		if err := db.UpsertAccount(ctx, model.Account{ID: id, Username: "u" + id}); err != nil {
			t.Fatal(err)
		}
	}
	score := 0.7
	if err := db.PutTweet(ctx, model.Tweet{ID: "t1", AccountID: "1", Text: "rust rocks", CreatedAt: time.Unix(1700000000, 0), Sentiment: model.SentimentPositive, SentimentScore: &score}); err != nil {
		t.Fatal(err)
	}
	at := time.Unix(1700000100, 0).UTC()
	first := []model.CampScore{
		{AccountID: "1", BioScore: 1, TweetScore: 2, TotalScore: 3, MatchedTweets: 1,
			BioMatches: []model.TermCount{{Term: "rust", Count: 1, Weight: 1}}},
		{AccountID: "2", BioScore: 1, TotalScore: 1},
	}
	matches := []model.TweetMatch{{TweetID: "t1", AccountID: "1", Score: 2, Terms: []string{"rust"}}}
	if err := db.ReplaceCampResults(ctx, c.ID, first, matches, at); err != nil {
		t.Fatal(err)
	}
	rows, err := db.CampScores(ctx, c.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("scores: %v %d", err, len(rows))
	}
	for _, r := range rows {
		if r.Score.AccountID == "1" && (len(r.Score.BioMatches) != 1 || r.Account.Username != "u1" || !r.Score.ComputedAt.Equal(at)) {
			t.Fatalf("details lost: %+v", r)
		}
	}
	tm, err := db.CampTweetMatches(ctx, c.ID)
	if err != nil || len(tm) != 1 || tm[0].Tweet.Text != "rust rocks" || tm[0].Match.Terms[0] != "rust" || *tm[0].Tweet.SentimentScore != 0.7 {
		t.Fatalf("tweet matches: %v %+v", err, tm)
	}

	// second run replaces the first completely
	if err := db.ReplaceCampResults(ctx, c.ID, first[1:], nil, at.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	rows, _ = db.CampScores(ctx, c.ID)
	tm, _ = db.CampTweetMatches(ctx, c.ID)
	if len(rows) != 1 || rows[0].Score.AccountID != "2" || len(tm) != 0 {
		t.Fatalf("stale rows survived: %+v %+v", rows, tm)
	}
	got, _ := db.GetCamp(ctx, c.ID)
	if got.ScoredAt == nil || !got.ScoredAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("scored_at not stamped: %+v", got.ScoredAt)
	}

	if err := db.ReplaceCampResults(ctx, 999, nil, nil, at); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteCampCascades(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	c, _ := db.CreateCamp(ctx, model.Camp{Name: "Go", Color: "#00add8"})
	_, _ = db.AddKeyword(ctx, model.Keyword{CampID: c.ID, Term: "golang", Weight: 1, Sentiment: model.SentimentAny})
	_ = db.UpsertAccount(ctx, model.Account{ID: "1", Username: "gopher"})
	_ = db.ReplaceCampResults(ctx, c.ID, []model.CampScore{{AccountID: "1", TotalScore: 1, BioScore: 1}}, nil, time.Now())
	_ = db.RecordRun(ctx, model.RunStatus{RunID: "r1", CampID: c.ID, State: model.RunCompleted, StartedAt: time.Now(), FinishedAt: time.Now()})

	if err := db.DeleteCamp(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetCamp(ctx, c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("camp still present: %v", err)
	}
	st, err := db.Stats(ctx)
	if err != nil || st.Camps != 0 || st.Keywords != 0 || st.Accounts != 1 {
		t.Fatalf("stats after delete: %v %+v", err, st)
	}
	if rows, _ := db.CampScores(ctx, c.ID); len(rows) != 0 {
		t.Fatalf("scores survived delete: %+v", rows)
	}
	if runs, _ := db.Runs(ctx, c.ID, 0); len(runs) != 0 {
		t.Fatalf("runs survived delete: %+v", runs)
	}
	if err := db.DeleteCamp(ctx, c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	for i, state := range []model.RunState{model.RunFailed, model.RunCompleted} {
		r := model.RunStatus{RunID: fmt.Sprintf("r%d", i), CampID: 1, State: state, StartedAt: time.Unix(int64(i), 0), FinishedAt: time.Unix(int64(i+1), 0)}
		if err := db.RecordRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := db.Runs(ctx, 1, 1)
	if err != nil || len(runs) != 1 || runs[0].RunID != "r1" || runs[0].State != model.RunCompleted {
		t.Fatalf("runs: %v %+v", err, runs)
	}
}

func TestImportCorpusRollsBackOnUnknownAuthor(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if err := db.UpsertAccount(ctx, model.Account{ID: "1", Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	err := db.ImportCorpus(ctx,
		[]model.Account{{ID: "2", Username: "bob"}},
		[]model.Tweet{{ID: "t1", AccountID: "1", Text: "stored author"}, {ID: "t2", AccountID: "9", Text: "orphan"}})
	if !model.IsConfigError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if _, err := db.GetAccount(ctx, "2"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("rolled back account is visible: %v", err)
	}
	if st, _ := db.Stats(ctx); st.Accounts != 1 || st.Tweets != 0 {
		t.Fatalf("partial import: %+v", st)
	}

	err = db.ImportCorpus(ctx,
		[]model.Account{{ID: "2", Username: "bob", FollowersCount: 50, IsSeed: true}},
		[]model.Tweet{{ID: "t1", AccountID: "1"}, {ID: "t2", AccountID: "2"}})
	if err != nil {
		t.Fatal(err)
	}
	a, err := db.GetAccount(ctx, "2")
	if err != nil || a.Username != "bob" {
		t.Fatalf("get account: %v %+v", err, a)
	}
	if st, _ := db.Stats(ctx); st.Accounts != 2 || st.Tweets != 2 {
		t.Fatalf("import: %+v", st)
	}
}

func TestListAccounts(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	for _, a := range []model.Account{
		{ID: "1", Username: "a", FollowersCount: 5},
		{ID: "2", Username: "b", FollowersCount: 50, IsSeed: true},
		{ID: "3", Username: "c", FollowersCount: 5, IsSeed: true},
	} {
		if err := db.UpsertAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	all, err := db.ListAccounts(ctx, false, 0)
	if err != nil || len(all) != 3 || all[0].ID != "2" || all[1].ID != "1" || all[2].ID != "3" {
		t.Fatalf("list: %v %+v", err, all)
	}
	seeds, err := db.ListAccounts(ctx, true, 1)
	if err != nil || len(seeds) != 1 || seeds[0].ID != "2" {
		t.Fatalf("seeds: %v %+v", err, seeds)
	}
}
