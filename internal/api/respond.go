package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gaspardpetit/resumegen/internal/logx"
	"github.com/gaspardpetit/resumegen/internal/relay"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeRequest reads a relay request body. Malformed JSON is answered with
// 400 and reported as false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeRelayError maps a relay failure that happened before any output was
// written.
func writeRelayError(w http.ResponseWriter, err error) {
	var ue *relay.UpstreamError
	switch {
	case errors.Is(err, relay.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ue):
		msg := "Failed to fetch from upstream"
		if ue.Body != "" {
			msg = fmt.Sprintf("%s: %s", msg, ue.Body)
		} else if ue.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, ue.Err)
		}
		writeError(w, ue.HTTPStatus(), msg)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout")
	case errors.Is(err, relay.ErrStreamAborted):
		writeError(w, http.StatusBadGateway, "upstream stream aborted")
	default:
		logx.Log.Error().Err(err).Msg("relay failure")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
