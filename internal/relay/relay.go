// Package relay bridges a streaming upstream text-generation response to a
// downstream byte stream that carries only the generated text.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gaspardpetit/resumegen/internal/logx"
	"github.com/gaspardpetit/resumegen/internal/metrics"
	"github.com/gaspardpetit/resumegen/internal/provider"
	"github.com/gaspardpetit/resumegen/internal/sse"
)

const maxErrorBody = 64 * 1024

var transport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     120 * time.Second,
}

// Relay is constructed once per process and shared by all requests. It holds
// no mutable state.
type Relay struct {
	client  *http.Client
	profile provider.Profile
}

// New returns a relay for profile. A nil client uses a pooled transport with
// no client-level timeout; callers bound each request through its context.
func New(profile provider.Profile, client *http.Client) *Relay {
	if client == nil {
		client = &http.Client{Transport: transport}
	}
	return &Relay{client: client, profile: profile}
}

// Profile returns the upstream profile the relay talks to.
func (r *Relay) Profile() provider.Profile { return r.profile }

// Open validates req, sends one streaming request upstream and waits for the
// response headers. Validation failures return ErrInvalidRequest without
// contacting upstream; connection failures and non-2xx answers return
// *UpstreamError. On success the returned Stream owns the upstream body and
// must be closed.
func (r *Relay) Open(ctx context.Context, task Task, req Request) (*Stream, error) {
	s := &Stream{
		ID:      uuid.NewString(),
		task:    task.Name,
		profile: r.profile,
		start:   time.Now(),
	}
	s.log = logx.Log.With().
		Str("request_id", chiMiddleware.GetReqID(ctx)).
		Str("relay_id", s.ID).
		Str("provider", r.profile.Name).
		Str("task", task.Name).
		Logger()

	s.transition(StateValidating)
	if err := req.Validate(); err != nil {
		s.transition(StateAborted)
		metrics.RecordRelay(r.profile.Name, task.Name, metrics.OutcomeInvalid)
		return nil, err
	}

	httpReq, err := r.profile.Build(ctx, task.Prompt(req))
	if err != nil {
		return nil, s.failUpstream(&UpstreamError{Err: err})
	}
	s.transition(StateAwaitingHeaders)
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, s.failUpstream(&UpstreamError{Err: err})
	}
	metrics.RecordUpstreamStatus(r.profile.Name, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, s.failUpstream(&UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}

	s.body = resp.Body
	s.lines = sse.NewReader(resp.Body)
	s.transition(StateStreaming)
	s.log.Info().Str("model", r.profile.Model).Msg("relay start")
	return s, nil
}

// Collect runs the relay to completion and returns the concatenated text.
func (r *Relay) Collect(ctx context.Context, task Task, req Request) (string, error) {
	s, err := r.Open(ctx, task, req)
	if err != nil {
		return "", err
	}
	defer func() { _ = s.Close() }()
	var b strings.Builder
	_, err = s.WriteTo(&b)
	return b.String(), err
}

// Stream is one open upstream response. It is owned by a single request and
// is not safe for concurrent use.
type Stream struct {
	ID string

	task    string
	profile provider.Profile
	body    io.ReadCloser
	lines   *sse.Reader
	log     zerolog.Logger
	start   time.Time
	state   State

	bytes     int64
	fragments int
	closeOnce sync.Once
}

// State returns the current lifecycle state.
func (s *Stream) State() State { return s.state }

// WriteTo forwards text fragments to w, in upstream order, until the
// provider's sentinel or upstream EOF. Each fragment is written as soon as its
// event line is complete and flushed when w is an http.Flusher. Any read or
// write failure ends the stream with an error wrapping ErrStreamAborted; the
// upstream body is released on every path.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	if s.state != StateStreaming {
		return 0, fmt.Errorf("%w: stream is %s", ErrStreamAborted, s.state)
	}
	flusher, _ := w.(http.Flusher)
	var written int64
	for {
		line, err := s.lines.ReadLine()
		if errors.Is(err, io.EOF) {
			return written, s.finish(nil, "eof")
		}
		if err != nil {
			return written, s.finish(err, "")
		}
		payload, ok := sse.Data(line)
		if !ok {
			continue
		}
		if s.profile.Sentinel != "" && payload == s.profile.Sentinel {
			return written, s.finish(nil, "sentinel")
		}
		text, err := s.profile.Extract([]byte(payload))
		if err != nil {
			metrics.RecordMalformedFrame(s.profile.Name)
			s.log.Debug().Err(err).Int("len", len(payload)).Msg("skip malformed frame")
			continue
		}
		if text == "" {
			continue
		}
		n, err := io.WriteString(w, text)
		written += int64(n)
		s.bytes += int64(n)
		if err != nil {
			return written, s.finish(err, "")
		}
		if flusher != nil {
			flusher.Flush()
		}
		s.fragments++
		metrics.RecordForwarded(s.profile.Name, n)
	}
}

// Close releases the upstream body. A stream closed before WriteTo finished
// is recorded as aborted. Close is idempotent.
func (s *Stream) Close() error {
	if s.state == StateStreaming {
		_ = s.finish(errors.New("closed before completion"), "")
	}
	return s.release()
}

func (s *Stream) release() error {
	var err error
	s.closeOnce.Do(func() {
		if s.body != nil {
			err = s.body.Close()
		}
	})
	return err
}

func (s *Stream) finish(cause error, reason string) error {
	_ = s.release()
	dur := time.Since(s.start)
	metrics.ObserveRelayDuration(s.profile.Name, s.task, dur)
	if cause == nil {
		s.transition(StateCompleted)
		metrics.RecordRelay(s.profile.Name, s.task, metrics.OutcomeCompleted)
		s.log.Info().Str("reason", reason).Int("fragments", s.fragments).Int64("bytes", s.bytes).Dur("duration", dur).Msg("relay complete")
		return nil
	}
	s.transition(StateAborted)
	metrics.RecordRelay(s.profile.Name, s.task, metrics.OutcomeAborted)
	s.log.Warn().Err(cause).Int("fragments", s.fragments).Int64("bytes", s.bytes).Dur("duration", dur).Msg("relay aborted")
	return fmt.Errorf("%w: %w", ErrStreamAborted, cause)
}

func (s *Stream) failUpstream(err *UpstreamError) error {
	s.transition(StateAborted)
	metrics.RecordRelay(s.profile.Name, s.task, metrics.OutcomeUpstreamError)
	ev := s.log.Warn()
	if err.Status >= http.StatusInternalServerError || err.Status == http.StatusUnauthorized || err.Status == http.StatusForbidden || err.Err != nil {
		ev = s.log.Error()
	}
	ev.Int("status", err.Status).Err(err).Msg("upstream error")
	return err
}

func (s *Stream) transition(next State) {
	if s.state.Terminal() {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", next).Msg("relay state")
	s.state = next
}
