// Package api serves camps, keywords, leaderboards and recompute runs over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"openccp/internal/camps"
	"openccp/internal/logging"
	"openccp/internal/metrics"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handler struct {
	svc *camps.Service
	db  Pinger
}

// NewRouter builds the HTTP routes. db may be nil.
func NewRouter(svc *camps.Service, db Pinger) http.Handler {
	h := &handler{svc: svc, db: db}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Route("/camps", func(r chi.Router) {
			r.Get("/", h.listCamps)
			r.Post("/", h.createCamp)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getCamp)
				r.Delete("/", h.deleteCamp)
				r.Get("/keywords", h.listKeywords)
				r.Post("/keywords", h.addKeyword)
				r.Get("/leaderboard", h.leaderboard)
				r.Get("/tweets", h.topTweets)
				r.Post("/recompute", h.recompute)
				r.Get("/recompute", h.recomputeStatus)
			})
		})
		r.Delete("/keywords/{id}", h.deleteKeyword)
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.listAccounts)
			r.Get("/{username}", h.getAccount)
			r.Get("/{username}/tweets", h.accountTweets)
			r.Get("/{username}/scores", h.accountScores)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("http_request", map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"took":       time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}
