package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"openccp/internal/model"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) listCamps(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.ListCamps(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if cs == nil {
		cs = []model.Camp{}
	}
	writeJSON(w, http.StatusOK, cs)
}

type createCampRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (h *handler) createCamp(w http.ResponseWriter, r *http.Request) {
	var req createCampRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.CreateCamp(r.Context(), req.Name, req.Description, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// getCamp accepts an id or a slug.
func (h *handler) getCamp(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCamp(r.Context(), chiParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) deleteCamp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.svc.DeleteCamp(r.Context(), id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listKeywords(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	kws, err := h.svc.ListKeywords(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kws)
}

type addKeywordRequest struct {
	Term      string  `json:"term"`
	Weight    float64 `json:"weight"`
	Sentiment string  `json:"sentiment"`
}

func (h *handler) addKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req addKeywordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	k, err := h.svc.AddKeyword(r.Context(), id, req.Term, req.Weight, req.Sentiment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, k)
}

func (h *handler) deleteKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.svc.DeleteKeyword(r.Context(), id)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	lb, err := h.svc.Leaderboard(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *handler) topTweets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tw, err := h.svc.TopTweets(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tw)
}

// recompute runs synchronously. A failed run still reports its status body.
// The run outlives a client disconnect; it is bounded by the recompute run timeout.
func (h *handler) recompute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.svc.Recompute(context.WithoutCancel(r.Context()), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, model.ErrRunInProgress), errors.Is(err, model.ErrNotFound):
		writeError(w, err)
	default:
		writeJSON(w, statusOf(err), st)
	}
}

func (h *handler) recomputeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.svc.RecomputeStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) accountScores(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.AccountScores(r.Context(), chiParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	seeds := false
	if v := r.URL.Query().Get("seeds_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, &model.ConfigError{Field: "seeds_only", Reason: "must be a boolean"})
			return
		}
		seeds = b
	}
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.ListAccounts(r.Context(), seeds, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetAccount(r.Context(), chiParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) accountTweets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.AccountTweets(r.Context(), chiParam(r, "username"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
