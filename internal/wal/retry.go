// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package wal

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/auditstream/internal/logging"
)

// maxBackoff caps the per-entry redelivery backoff.
const maxBackoff = 5 * time.Minute

// RetryLoop periodically redelivers pending entries.
type RetryLoop struct {
	wal         *BadgerWAL
	redeliverer Redeliverer
	config      Config

	mu       sync.Mutex
	running  bool
	stopping bool
	cancel   context.CancelFunc
	stopDone chan struct{}
}

// NewRetryLoop creates a retry loop over w.
func NewRetryLoop(w *BadgerWAL, r Redeliverer) *RetryLoop {
	return &RetryLoop{
		wal:         w,
		redeliverer: r,
		config:      w.GetConfig(),
	}
}

// Start launches the loop. A second Start while running is a no-op.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	for r.stopping {
		stopDone := r.stopDone
		r.mu.Unlock()
		<-stopDone
		r.mu.Lock()
	}
	if r.running {
		r.mu.Unlock()
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	done := make(chan struct{})
	r.stopDone = done
	r.mu.Unlock()

	go r.run(loopCtx, done)

	logging.Info().
		Dur("interval", r.config.RetryInterval).
		Int("max_retries", r.config.MaxRetries).
		Msg("WAL retry loop started")
	return nil
}

// Stop cancels the loop and waits for the current pass to finish.
func (r *RetryLoop) Stop() {
	r.mu.Lock()
	if !r.running || r.stopping {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	r.stopping = true
	stopDone := r.stopDone
	r.mu.Unlock()

	<-stopDone

	r.mu.Lock()
	r.stopping = false
	r.mu.Unlock()
	logging.Info().Msg("WAL retry loop stopped")
}

// IsRunning reports whether the loop is active.
func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RetryLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce makes one redelivery pass, honouring per-entry backoff.
func (r *RetryLoop) RunOnce(ctx context.Context) RecoveryResult {
	var result RecoveryResult
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("WAL retry: failed to get pending entries")
		return result
	}
	result.TotalPending = len(entries)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		o, err := r.wal.process(ctx, entry, r.redeliverer, true)
		if err != nil {
			logging.Error().Err(err).Str("entry_id", entry.ID).Msg("WAL retry: entry bookkeeping failed")
			result.Errors = append(result.Errors, err)
		}
		result.tally(o)
	}

	if result.Recovered+result.Failed+result.Expired+result.MaxRetried > 0 {
		logging.Info().
			Int("succeeded", result.Recovered).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Int("max_retried", result.MaxRetried).
			Msg("WAL retry complete")
	}
	r.wal.Stats()
	return result
}

// calculateBackoff returns base * 2^attempts, capped at maxBackoff.
func calculateBackoff(base time.Duration, attempts int) time.Duration {
	if attempts > 50 {
		return maxBackoff
	}
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempts)))
	if backoff < 0 || backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
