package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest marks a client payload that failed validation. No
	// upstream call is made.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStreamAborted marks a failure after streaming began. Output already
	// written is not retracted.
	ErrStreamAborted = errors.New("stream aborted")
)

// UpstreamError reports a failure before any byte was forwarded: the
// connection could not be made or the provider answered with a non-2xx
// status.
type UpstreamError struct {
	Status int    // upstream status; 0 when no response was received
	Body   string // upstream error body, possibly truncated
	Err    error  // transport error, if any
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return "upstream request failed: " + e.Err.Error()
	case e.Body != "":
		return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("upstream returned %d", e.Status)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus is the status to mirror to the caller.
func (e *UpstreamError) HTTPStatus() int {
	switch {
	case e.Status >= http.StatusBadRequest:
		return e.Status
	case errors.Is(e.Err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
