package api

import (
	_ "embed"
	"io"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gaspardpetit/resumegen/internal/logx"
)

var (
	//go:embed demo/resume.md
	demoResume string
	//go:embed demo/cover_letter.txt
	demoCoverLetter string
)

// resumeMarker in a job description selects the resume document.
const resumeMarker = "create a tailored resume"

// DemoRequest is the body of POST /api/demo. Only the job description is
// required.
type DemoRequest struct {
	JobDescription string `json:"jobDescription"`
	UserProfile    string `json:"userProfile"`
}

// DemoHandler handles POST /api/demo. It streams a canned document word by
// word without contacting any provider.
func DemoHandler(delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DemoRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" {
			writeError(w, http.StatusBadRequest, "Job description is required")
			return
		}
		doc := demoCoverLetter
		if strings.Contains(req.JobDescription, resumeMarker) {
			doc = demoResume
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		if err := streamWords(r, w, flusher, doc, delay); err != nil {
			logx.Log.Debug().Str("request_id", chiMiddleware.GetReqID(r.Context())).Err(err).Msg("demo stream stopped")
		}
	}
}

// streamWords writes doc one space-separated word at a time, pausing delay
// between words. It stops when the client goes away.
func streamWords(r *http.Request, w io.Writer, flusher http.Flusher, doc string, delay time.Duration) error {
	var timer *time.Timer
	if delay > 0 {
		timer = time.NewTimer(delay)
		defer timer.Stop()
	}
	for _, word := range strings.Split(doc, " ") {
		if _, err := io.WriteString(w, word+" "); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		if timer == nil {
			if err := r.Context().Err(); err != nil {
				return err
			}
			continue
		}
		timer.Reset(delay)
		select {
		case <-r.Context().Done():
			return r.Context().Err()
		case <-timer.C:
		}
	}
	return nil
}
