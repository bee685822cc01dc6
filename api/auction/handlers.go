// Package auction exposes read-only views of auction state over HTTP.
package auction

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/lineauction/core/auction/journal"
	"github.com/kilianp07/lineauction/core/model"
)

// NewJournalHandler returns an HTTP handler exposing resolution records via
// GET /api/auction/journal. Supported filters: line, frame, start and end
// (RFC3339). Unparseable times are ignored.
func NewJournalHandler(store journal.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		params := r.URL.Query()
		q := journal.Query{
			Line:  params.Get("line"),
			Frame: model.Frame(params.Get("frame")),
		}
		if s := params.Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := params.Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []journal.Record{}
		}
		writeJSON(w, records)
	})
}

// WinnersFunc lists the active schedules.
type WinnersFunc func(ctx context.Context) ([]model.Schedule, error)

// NewWinnersHandler serves GET /api/auction/winners.
func NewWinnersHandler(winners WinnersFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		out, err := winners(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if out == nil {
			out = []model.Schedule{}
		}
		writeJSON(w, out)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
