// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/metrics"
)

// Sink outcome labels beyond success and error.
const (
	OutcomeSpooled = "spooled"
	OutcomeDropped = "dropped"
)

// Spooler persists events a sink could not accept. *wal.BadgerWAL
// implements it.
type Spooler interface {
	Write(ctx context.Context, sinkName string, ev *audit.Event) (string, error)
}

// RetryConfig controls in-process retries before an event is spooled.
type RetryConfig struct {
	// MaxAttempts counts the first try. Values below 1 mean 1.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// WriteTimeout bounds each attempt. Zero means no bound.
	WriteTimeout time.Duration
}

// DefaultRetryConfig returns production defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Resilient wraps a sink with a circuit breaker and bounded retries. An
// event that still fails is spooled, or reported at error level when no
// spooler is configured. It is never dropped silently.
type Resilient struct {
	inner   Sink
	retry   RetryConfig
	breaker *gobreaker.CircuitBreaker[any]
	spool   Spooler
}

// NewResilient wraps inner. spool may be nil.
func NewResilient(inner Sink, retry RetryConfig, breaker BreakerConfig, spool Spooler) *Resilient {
	r := &Resilient{inner: inner, retry: retry, spool: spool}
	if r.retry.MaxAttempts < 1 {
		r.retry.MaxAttempts = 1
	}
	if breaker.FailureThreshold > 0 {
		r.breaker = NewCircuitBreaker(inner.Name(), breaker)
	}
	return r
}

// Name returns the inner sink's name so WAL entries route back to it.
func (r *Resilient) Name() string { return r.inner.Name() }

// Inner returns the wrapped sink.
func (r *Resilient) Inner() Sink { return r.inner }

// Write delivers ev, retrying with exponential backoff. Cancelling ctx ends
// the retries early; the event is then spooled like any other failure.
func (r *Resilient) Write(ctx context.Context, ev *audit.Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	var err error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.RecordSinkRetry(r.Name())
			if !wait(ctx, r.backoff(attempt-1)) {
				break
			}
		}
		if err = r.Deliver(ctx, ev); err == nil {
			return nil
		}
		if !retryable(err) {
			break
		}
		logging.Debug().Err(err).
			Str("sink", r.Name()).
			Str("audit_id", ev.ID.String()).
			Int("attempt", attempt).
			Msg("Sink write failed")
	}
	return r.fail(ctx, ev, err)
}

// Deliver makes a single attempt through the breaker. The WAL retry loop
// calls it directly so redelivery also respects an open breaker.
func (r *Resilient) Deliver(ctx context.Context, ev *audit.Event) error {
	if r.breaker == nil {
		return r.attempt(ctx, ev)
	}
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.attempt(ctx, ev)
	})
	return err
}

func (r *Resilient) attempt(ctx context.Context, ev *audit.Event) error {
	if r.retry.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.retry.WriteTimeout)
		defer cancel()
	}
	start := time.Now()
	err := r.inner.Write(ctx, ev)
	metrics.RecordSinkWrite(r.Name(), time.Since(start), err)
	return err
}

func (r *Resilient) fail(ctx context.Context, ev *audit.Event, cause error) error {
	log := logging.With().
		Str("sink", r.Name()).
		Str("audit_id", ev.ID.String()).
		Str("event_uuid", ev.UUID).
		Int("records", ev.Len()).
		Logger()

	if r.spool != nil {
		id, err := r.spool.Write(context.WithoutCancel(ctx), r.Name(), ev)
		if err == nil {
			metrics.RecordSinkOutcome(r.Name(), OutcomeSpooled)
			log.Warn().Err(cause).Str("entry_id", id).Msg("Sink unavailable, event spooled to WAL")
			return nil
		}
		cause = errors.Join(cause, fmt.Errorf("spool: %w", err))
	}

	metrics.RecordSinkOutcome(r.Name(), OutcomeDropped)
	log.Error().Err(cause).Msg("Event could not be delivered")
	return fmt.Errorf("deliver event %s to %s: %w", ev.ID, r.Name(), cause)
}

// backoff returns InitialBackoff * 2^(n-1), capped at MaxBackoff.
func (r *Resilient) backoff(n int) time.Duration {
	d := r.retry.InitialBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if r.retry.MaxBackoff > 0 && d >= r.retry.MaxBackoff {
			return r.retry.MaxBackoff
		}
	}
	if r.retry.MaxBackoff > 0 && d > r.retry.MaxBackoff {
		return r.retry.MaxBackoff
	}
	return d
}

// Close closes the wrapped sink.
func (r *Resilient) Close() error { return r.inner.Close() }

// retryable reports whether another attempt could succeed soon.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrClosed), errors.Is(err, ErrNilEvent):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
