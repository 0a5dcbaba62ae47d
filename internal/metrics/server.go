// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health reports whether the process considers itself healthy.
type Health struct {
	ready atomic.Bool
}

// SetReady marks the process ready or not ready.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// Ready reports the current readiness.
func (h *Health) Ready() bool { return h.ready.Load() }

// ServerConfig configures the metrics endpoint.
type ServerConfig struct {
	Addr string

	// RateLimit is the number of requests allowed per client IP per minute.
	RateLimit int
}

// NewServer builds the HTTP server for /metrics and /healthz. The caller
// runs it, typically through a supervisor service.
func NewServer(cfg ServerConfig, health *Health) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, health),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

// NewRouter returns the chi router used by NewServer.
func NewRouter(cfg ServerConfig, health *Health) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil && !health.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
