package tracefeed

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const maxIngestBytes = 8 << 20

// Handler serves the store as a trace endpoint. GET returns
// {"ok":true,"events":[...]}, optionally limited with ?limit=N. POST accepts
// any body Decode understands and appends its events.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, map[string]any{
				"ok":     true,
				"events": nonNil(s.Recent(limit)),
			})

		case http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBytes))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			events, err := Decode(body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			s.Add(events...)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "accepted": len(events)})

		default:
			w.Header().Set("Allow", "GET, POST")
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": fmt.Sprintf("method %s not allowed", r.Method)})
		}
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write trace response", "error", err)
	}
}
