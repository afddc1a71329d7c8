package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"openccp/internal/logging"
	"openccp/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("http_encode_error", map[string]any{"error": err.Error()})
	}
}

// statusOf maps the error taxonomy to HTTP status codes.
func statusOf(err error) int {
	switch {
	case model.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logging.Error("http_error", map[string]any{"error": err.Error()})
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ConfigError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 1000 {
		return 0, &model.ConfigError{Field: "limit", Reason: "must be an integer in [0, 1000]"}
	}
	return n, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &model.ConfigError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func chiParam(r *http.Request, name string) string { return chi.URLParam(r, name) }
