package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gaspardpetit/resumegen/internal/relay"
	"github.com/gaspardpetit/resumegen/internal/serverstate"
)

// GenerateHandler handles POST /api/generate: it relays the upstream stream
// of resume suggestions to the caller as plain text, flushed per fragment.
func GenerateHandler(rl *relay.Relay, timeout time.Duration, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if serverstate.IsDraining() {
			writeError(w, http.StatusServiceUnavailable, "draining")
			return
		}
		var req relay.Request
		if !decodeRequest(w, r, &req) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		s, err := rl.Open(ctx, relay.Suggestions, req)
		if err != nil {
			writeRelayError(w, err)
			return
		}
		defer func() { _ = s.Close() }()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Relay-Id", s.ID)
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if _, err := s.WriteTo(w); err != nil {
			// Headers are committed; the only signal left is to cut the
			// connection so the client sees an incomplete body.
			panic(http.ErrAbortHandler)
		}
	}
}
