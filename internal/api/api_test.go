package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"openccp/internal/camps"
	"openccp/internal/model"
	"openccp/internal/recompute"
	"openccp/internal/scoring"
	"openccp/internal/store/sqlite"
)

func newServer(t *testing.T) (*httptest.Server, *camps.Service) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	orch := recompute.New(db, db, db, recompute.Options{Workers: 2, ReadTimeout: time.Second, Policy: scoring.DefaultPolicy()})
	svc := camps.New(db, orch, nil, camps.Options{})
	srv := httptest.NewServer(NewRouter(svc, db))
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string, want int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var e errorBody
		_ = json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("%s %s: status %d, want %d (%s)", method, url, resp.StatusCode, want, e.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCampLifecycle(t *testing.T) {
	srv, svc := newServer(t)
	_, err := svc.Import(t.Context(), strings.NewReader(`{
	  "accounts": [{"id": "1", "username": "alice", "description": "bitcoin maximalist", "is_seed": true}],
	  "tweets": [{"id": "5", "account_id": "1", "text": "stacking #bitcoin daily", "created_at": "2024-05-01T00:00:00Z"}]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	var c model.Camp
	do(t, "POST", srv.URL+"/api/camps", `{"name": "Bitcoin", "description": "hodlers"}`, http.StatusCreated, &c)
	if c.Slug != "bitcoin" || c.Color != model.DefaultCampColor {
		t.Fatalf("camp: %+v", c)
	}
	do(t, "POST", srv.URL+"/api/camps", `{"name": "bitcoin"}`, http.StatusConflict, nil)
	do(t, "GET", srv.URL+"/api/camps/bitcoin", "", http.StatusOK, nil)

	id := itoa(c.ID)
	do(t, "POST", srv.URL+"/api/camps/"+id+"/keywords", `{"term": "bitcoin", "weight": 2, "sentiment": "any"}`, http.StatusCreated, nil)
	do(t, "POST", srv.URL+"/api/camps/"+id+"/keywords", `{"term": "moon", "weight": 50}`, http.StatusBadRequest, nil)
	do(t, "POST", srv.URL+"/api/camps/"+id+"/keywords", `{"term": "moon", "weird": 1}`, http.StatusBadRequest, nil)

	var lb camps.LeaderboardView
	do(t, "GET", srv.URL+"/api/camps/"+id+"/leaderboard", "", http.StatusOK, &lb)
	if lb.ComputedAt != nil || len(lb.Entries) != 0 {
		t.Fatalf("expected uncomputed board: %+v", lb)
	}

	var st model.RunStatus
	do(t, "POST", srv.URL+"/api/camps/"+id+"/recompute", "", http.StatusOK, &st)
	if st.State != model.RunCompleted || st.AccountsScored != 1 {
		t.Fatalf("run: %+v", st)
	}
	do(t, "GET", srv.URL+"/api/camps/"+id+"/recompute", "", http.StatusOK, &st)
	if st.State != model.RunCompleted {
		t.Fatalf("status: %+v", st)
	}

	do(t, "GET", srv.URL+"/api/camps/"+id+"/leaderboard?limit=5", "", http.StatusOK, &lb)
	if lb.ComputedAt == nil || len(lb.Entries) != 1 || lb.Entries[0].TotalScore != 4 || lb.Entries[0].Rank != 1 {
		t.Fatalf("leaderboard: %+v", lb)
	}
	do(t, "GET", srv.URL+"/api/camps/"+id+"/leaderboard?limit=x", "", http.StatusBadRequest, nil)

	var tw camps.TweetsView
	do(t, "GET", srv.URL+"/api/camps/"+id+"/tweets", "", http.StatusOK, &tw)
	if len(tw.Tweets) != 1 || tw.Tweets[0].MatchedKeywords[0] != "bitcoin" {
		t.Fatalf("tweets: %+v", tw)
	}

	var as camps.AccountScoresView
	do(t, "GET", srv.URL+"/api/accounts/alice/scores", "", http.StatusOK, &as)
	if len(as.Scores) != 1 || as.Scores[0].TotalScore != 4 {
		t.Fatalf("account scores: %+v", as)
	}

	var kws []model.Keyword
	do(t, "GET", srv.URL+"/api/camps/"+id+"/keywords", "", http.StatusOK, &kws)
	if len(kws) != 1 {
		t.Fatalf("keywords: %+v", kws)
	}
	do(t, "DELETE", srv.URL+"/api/keywords/"+itoa(kws[0].ID), "", http.StatusNoContent, nil)
	do(t, "DELETE", srv.URL+"/api/keywords/"+itoa(kws[0].ID), "", http.StatusNotFound, nil)

	var stats model.Stats
	do(t, "GET", srv.URL+"/api/stats", "", http.StatusOK, &stats)
	if stats.Camps != 1 || stats.Accounts != 1 || stats.Tweets != 1 || stats.Seeds != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	do(t, "DELETE", srv.URL+"/api/camps/"+id, "", http.StatusNoContent, nil)
	do(t, "GET", srv.URL+"/api/camps/"+id+"/leaderboard", "", http.StatusNotFound, nil)
	do(t, "POST", srv.URL+"/api/camps/"+id+"/recompute", "", http.StatusNotFound, nil)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newServer(t)
	do(t, "GET", srv.URL+"/health", "", http.StatusOK, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "openccp_recompute_inflight") {
		t.Fatal("metrics missing recompute gauge")
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		&model.ConfigError{Field: "x"}: http.StatusBadRequest,
		model.ErrNotFound:              http.StatusNotFound,
		model.ErrRunInProgress:         http.StatusConflict,
		model.ErrStoreUnavailable:      http.StatusServiceUnavailable,
	}
	for err, want := range cases {
		if got := statusOf(err); got != want {
			t.Fatalf("%v: got %d want %d", err, got, want)
		}
	}
}

func TestAccountRoutes(t *testing.T) {
	srv, svc := newServer(t)
	_, err := svc.Import(t.Context(), strings.NewReader(`{
	  "accounts": [
	    {"id": "1", "username": "alice", "description": "bitcoin maximalist", "followers_count": 5, "is_seed": true},
	    {"id": "2", "username": "bob", "followers_count": 90}
	  ],
	  "tweets": [
	    {"id": "5", "account_id": "1", "text": "old", "created_at": "2024-05-01T00:00:00Z"},
	    {"id": "6", "account_id": "1", "text": "new", "created_at": "2024-06-01T00:00:00Z", "sentiment": "positive"}
	  ]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	var list camps.AccountList
	do(t, "GET", srv.URL+"/api/accounts", "", http.StatusOK, &list)
	if list.Total != 2 || list.Accounts[0].Username != "bob" {
		t.Fatalf("accounts: %+v", list)
	}
	do(t, "GET", srv.URL+"/api/accounts?seeds_only=true", "", http.StatusOK, &list)
	if list.Total != 1 || list.Accounts[0].Username != "alice" {
		t.Fatalf("seeds: %+v", list)
	}
	do(t, "GET", srv.URL+"/api/accounts?seeds_only=maybe", "", http.StatusBadRequest, nil)

	var a camps.AccountDetail
	do(t, "GET", srv.URL+"/api/accounts/alice", "", http.StatusOK, &a)
	if a.ID != "1" || a.Description != "bitcoin maximalist" || !a.IsSeed {
		t.Fatalf("account: %+v", a)
	}
	do(t, "GET", srv.URL+"/api/accounts/nobody", "", http.StatusNotFound, nil)

	var tw camps.AccountTweetsView
	do(t, "GET", srv.URL+"/api/accounts/alice/tweets", "", http.StatusOK, &tw)
	if tw.Total != 2 || len(tw.Tweets) != 2 || tw.Tweets[0].ID != "6" || tw.Tweets[0].Sentiment != model.SentimentPositive {
		t.Fatalf("tweets: %+v", tw)
	}
	do(t, "GET", srv.URL+"/api/accounts/nobody/tweets", "", http.StatusNotFound, nil)
}

func TestRecomputeSurvivesClientDisconnect(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	orch := recompute.New(db, db, db, recompute.Options{Workers: 1, ReadTimeout: time.Second, Policy: scoring.DefaultPolicy()})
	svc := camps.New(db, orch, nil, camps.Options{})
	ctx := t.Context()
	if _, err := svc.Import(ctx, strings.NewReader(`{"accounts":[{"id":"1","username":"alice","description":"bitcoin","is_seed":true}]}`)); err != nil {
		t.Fatal(err)
	}
	c, err := svc.CreateCamp(ctx, "Bitcoin", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddKeyword(ctx, c.ID, "bitcoin", 1, "any"); err != nil {
		t.Fatal(err)
	}

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/api/camps/"+itoa(c.ID)+"/recompute", nil).WithContext(gone)
	rec := httptest.NewRecorder()
	NewRouter(svc, db).ServeHTTP(rec, req)
	var st model.RunStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || st.State != model.RunCompleted || st.AccountsScored != 1 {
		t.Fatalf("status %d: %+v", rec.Code, st)
	}
	lb, err := svc.Leaderboard(ctx, c.ID, 0)
	if err != nil || lb.ComputedAt == nil || len(lb.Entries) != 1 {
		t.Fatalf("leaderboard: %v %+v", err, lb)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
