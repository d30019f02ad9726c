// Package inflight counts requests that must finish before the process exits.
package inflight

import (
	"context"
	"net/http"
	"sync"

	"github.com/gaspardpetit/resumegen/internal/metrics"
)

// Counter tracks in-flight requests that should block draining. The zero
// value is ready to use.
type Counter struct {
	mu     sync.Mutex
	count  int64
	zeroCh chan struct{}
}

// lazily creates the zero channel; callers hold c.mu.
func (c *Counter) ensure() {
	if c.zeroCh == nil {
		c.zeroCh = make(chan struct{})
		if c.count == 0 {
			close(c.zeroCh)
		}
	}
}

// Inc increments the counter.
func (c *Counter) Inc() {
	c.mu.Lock()
	c.ensure()
	if c.count == 0 {
		c.zeroCh = make(chan struct{})
	}
	c.count++
	c.mu.Unlock()
}

// Dec decrements the counter. Calls without a matching Inc are ignored.
func (c *Counter) Dec() {
	c.mu.Lock()
	c.ensure()
	if c.count > 0 {
		c.count--
		if c.count == 0 {
			close(c.zeroCh)
		}
	}
	c.mu.Unlock()
}

// Load returns the current count.
func (c *Counter) Load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// WaitForZero blocks until the count is zero or ctx is done. It reports
// whether zero was reached.
func (c *Counter) WaitForZero(ctx context.Context) bool {
	c.mu.Lock()
	c.ensure()
	ch := c.zeroCh
	c.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Middleware counts each request for its whole duration and mirrors the
// count on the in-flight gauge.
func (c *Counter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Inc()
		metrics.IncInFlight()
		defer func() {
			metrics.DecInFlight()
			c.Dec()
		}()
		next.ServeHTTP(w, r)
	})
}

var relays Counter

// Relays returns the process-wide counter of relay requests.
func Relays() *Counter { return &relays }
