package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcomes.
const (
	OutcomeCompleted     = "completed"
	OutcomeAborted       = "aborted"
	OutcomeInvalid       = "invalid"
	OutcomeUpstreamError = "upstream_error"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "resumegen_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "server"},
		},
		[]string{"date", "sha", "version"},
	)

	relayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumegen_relay_requests_total",
			Help: "Relay requests by provider, task and outcome",
		},
		[]string{"provider", "task", "outcome"},
	)

	upstreamResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumegen_upstream_responses_total",
			Help: "Upstream responses by status code",
		},
		[]string{"provider", "code"},
	)

	forwardedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumegen_forwarded_bytes_total",
			Help: "Generated text bytes written downstream",
		},
		[]string{"provider"},
	)

	forwardedFragments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumegen_forwarded_fragments_total",
			Help: "Generated text fragments written downstream",
		},
		[]string{"provider"},
	)

	malformedFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumegen_malformed_frames_total",
			Help: "Upstream data lines skipped because they did not parse",
		},
		[]string{"provider"},
	)

	relayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resumegen_relay_duration_seconds",
			Help:    "Time from upstream request to end of stream",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"provider", "task"},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resumegen_inflight_requests",
			Help: "Relay requests currently being served",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, relayRequests, upstreamResponses, forwardedBytes, forwardedFragments, malformedFrames, relayDuration, inflight)
}

// SetServerBuildInfo sets the build info metric for the server.
func SetServerBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RecordRelay counts one relay outcome.
func RecordRelay(provider, task, outcome string) {
	relayRequests.WithLabelValues(provider, task, outcome).Inc()
}

// RecordUpstreamStatus counts an upstream response status.
func RecordUpstreamStatus(provider string, code int) {
	upstreamResponses.WithLabelValues(provider, strconv.Itoa(code)).Inc()
}

// RecordForwarded counts one fragment of n bytes written downstream.
func RecordForwarded(provider string, n int) {
	forwardedFragments.WithLabelValues(provider).Inc()
	forwardedBytes.WithLabelValues(provider).Add(float64(n))
}

// RecordMalformedFrame counts a skipped upstream data line.
func RecordMalformedFrame(provider string) {
	malformedFrames.WithLabelValues(provider).Inc()
}

// ObserveRelayDuration records the duration of a relay.
func ObserveRelayDuration(provider, task string, d time.Duration) {
	relayDuration.WithLabelValues(provider, task).Observe(d.Seconds())
}

// IncInFlight increments the in-flight gauge.
func IncInFlight() { inflight.Inc() }

// DecInFlight decrements the in-flight gauge.
func DecInFlight() { inflight.Dec() }
