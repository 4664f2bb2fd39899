package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trustline/backoffice/internal/services"
)

// decodeJSON reads a single JSON object into dst, capped at 1 MB with
// unknown fields rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must only contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// pathID parses a chi URL parameter as a positive int64.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Validationf("invalid %s", name)
	}
	return id, nil
}

// dateRange parses from/to query parameters as RFC 3339 dates, defaulting
// to the last 30 days.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from, to := now.AddDate(0, 0, -30), now

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, services.Validationf("invalid from date")
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, services.Validationf("invalid to date")
		}
		to = t
	}
	if to.Before(from) {
		return from, to, services.Validationf("to date precedes from date")
	}
	return from, to, nil
}
