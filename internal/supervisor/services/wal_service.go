// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package services

import (
	"context"
	"fmt"
)

// StartStopper is a background loop with its own goroutine, such as
// wal.RetryLoop or wal.Compactor.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// LoopService adapts a StartStopper to suture.Service. Serve starts the
// loop, waits for cancellation, and stops it; Stop blocks until the loop's
// goroutine has exited.
type LoopService struct {
	loop StartStopper
	name string
}

// NewWALRetryLoopService supervises the WAL redelivery loop.
func NewWALRetryLoopService(loop StartStopper) *LoopService {
	return &LoopService{loop: loop, name: "wal-retry-loop"}
}

// NewWALCompactorService supervises the WAL compactor.
func NewWALCompactorService(compactor StartStopper) *LoopService {
	return &LoopService{loop: compactor, name: "wal-compactor"}
}

// Serve implements suture.Service.
func (s *LoopService) Serve(ctx context.Context) error {
	if err := s.loop.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}
	<-ctx.Done()
	s.loop.Stop()
	return ctx.Err()
}

func (s *LoopService) String() string {
	return s.name
}
