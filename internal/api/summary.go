package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gaspardpetit/resumegen/internal/relay"
	"github.com/gaspardpetit/resumegen/internal/serverstate"
)

// SummaryFallback is returned when the provider produced no text.
const SummaryFallback = "Sorry, I couldn\u2019t generate a summary."

// SummaryResponse is the body of a successful POST /api/summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// SummaryHandler handles POST /api/summary. It runs the summary task to
// completion and returns the text as JSON.
func SummaryHandler(rl *relay.Relay, timeout time.Duration) http.HandlerFunc {
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

		text, err := rl.Collect(ctx, relay.Summary, req)
		if err != nil {
			writeRelayError(w, err)
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			text = SummaryFallback
		}
		writeJSON(w, http.StatusOK, SummaryResponse{Summary: text})
	}
}
