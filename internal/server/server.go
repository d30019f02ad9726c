// Package server assembles the HTTP surface of resumegen.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaspardpetit/resumegen/internal/api"
	"github.com/gaspardpetit/resumegen/internal/config"
	"github.com/gaspardpetit/resumegen/internal/inflight"
	"github.com/gaspardpetit/resumegen/internal/metrics"
	"github.com/gaspardpetit/resumegen/internal/relay"
)

// NewRegistry returns a Prometheus registry holding the resumegen metrics
// plus the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	preg := prometheus.NewRegistry()
	preg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(preg)
	return preg
}

// MetricsHandler exposes preg in the Prometheus text format.
func MetricsHandler(preg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(preg, promhttp.HandlerOpts{})
}

// New constructs the HTTP handler for the server. /metrics is served here
// when the metrics address is unset or matches the main port.
func New(cfg config.ServerConfig, rl *relay.Relay, preg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Relay-Id", "X-Request-Id"},
			MaxAge:         300,
		}))
	}
	for _, m := range api.MiddlewareChain() {
		r.Use(m)
	}

	r.Get("/healthz", api.HealthHandler)
	r.Route("/api", func(ar chi.Router) {
		ar.Use(api.APIKeyMiddleware(cfg.APIKey))
		ar.Group(func(g chi.Router) {
			g.Use(inflight.Relays().Middleware)
			g.Post("/generate", api.GenerateHandler(rl, cfg.RequestTimeout, cfg.StreamContentType))
			g.Post("/summary", api.SummaryHandler(rl, cfg.RequestTimeout))
		})
		ar.Post("/demo", api.DemoHandler(cfg.DemoDelay))
	})

	if preg != nil && (cfg.MetricsAddr == "" || cfg.MetricsAddr == fmt.Sprintf(":%d", cfg.Port)) {
		r.Handle("/metrics", MetricsHandler(preg))
	}
	return r
}
