// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/auditstream/internal/logging"
)

// HTTPServer is the subset of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// MetricsServerService serves /metrics and /healthz under supervision. A
// failed listen is returned so the api layer restarts it with backoff;
// the pipeline keeps running meanwhile.
type MetricsServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewMetricsServerService wraps server. A non-positive shutdownTimeout
// means 5s.
func NewMetricsServerService(server HTTPServer, shutdownTimeout time.Duration) *MetricsServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	return &MetricsServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *MetricsServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			logging.Warn().Err(err).Msg("Metrics server stopped")
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	<-listenErr
	return ctx.Err()
}

func (s *MetricsServerService) String() string { return "metrics-server" }
