// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/auditstream/internal/logging"
)

// Redeliverer hands a spooled entry back to the sink named in Entry.Sink.
type Redeliverer interface {
	Redeliver(ctx context.Context, entry *Entry) error
}

// RedelivererFunc adapts a function to Redeliverer.
type RedelivererFunc func(ctx context.Context, entry *Entry) error

// Redeliver implements Redeliverer.
func (f RedelivererFunc) Redeliver(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// RecoveryResult summarises one pass over the pending entries.
type RecoveryResult struct {
	TotalPending int
	Recovered    int
	Failed       int
	Expired      int
	MaxRetried   int
	Skipped      int
	Errors       []error
	Duration     time.Duration
}

type outcome int

const (
	outcomeRecovered outcome = iota
	outcomeFailed
	outcomeExpired
	outcomeMaxRetried
	outcomeSkipped
)

// RecoverPending redelivers every pending entry once, ignoring backoff.
// It runs at startup so events spooled before a crash or restart reach
// their sink before new traffic piles up.
func (w *BadgerWAL) RecoverPending(ctx context.Context, r Redeliverer) (*RecoveryResult, error) {
	if r == nil {
		return nil, errors.New("redeliverer cannot be nil")
	}

	start := time.Now()
	entries, err := w.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending entries: %w", err)
	}

	result := &RecoveryResult{TotalPending: len(entries)}
	if len(entries) == 0 {
		logging.Info().Msg("WAL recovery: no pending entries found")
		result.Duration = time.Since(start)
		return result, nil
	}

	logging.Info().Int("pending_entries", len(entries)).Msg("WAL recovery found pending entries")
	RecordWALRecoveredEntries(int64(len(entries)))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			result.Duration = time.Since(start)
			return result, err
		}
		o, err := w.process(ctx, entry, r, false)
		if err != nil {
			result.Errors = append(result.Errors, err)
		}
		result.tally(o)
	}

	result.Duration = time.Since(start)
	logging.Info().
		Int("recovered", result.Recovered).
		Int("failed", result.Failed).
		Int("expired", result.Expired).
		Int("max_retried", result.MaxRetried).
		Dur("duration", result.Duration).
		Msg("WAL recovery complete")
	return result, nil
}

func (r *RecoveryResult) tally(o outcome) {
	switch o {
	case outcomeRecovered:
		r.Recovered++
	case outcomeFailed:
		r.Failed++
	case outcomeExpired:
		r.Expired++
	case outcomeMaxRetried:
		r.MaxRetried++
	case outcomeSkipped:
		r.Skipped++
	}
}

// process handles one entry: drop it when expired or out of retries,
// otherwise redeliver and confirm. With honourBackoff, entries still in
// their backoff window are skipped.
func (w *BadgerWAL) process(ctx context.Context, entry *Entry, r Redeliverer, honourBackoff bool) (outcome, error) {
	log := logging.With().Str("entry_id", entry.ID).Str("sink", entry.Sink).Logger()

	if w.config.EntryTTL > 0 && time.Since(entry.CreatedAt) > w.config.EntryTTL {
		log.Error().Dur("age", time.Since(entry.CreatedAt)).Msg("WAL entry expired before redelivery, event lost")
		RecordWALExpiredEntry()
		if err := w.DeleteEntry(ctx, entry.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
			return outcomeExpired, fmt.Errorf("delete expired entry %s: %w", entry.ID, err)
		}
		return outcomeExpired, nil
	}

	if entry.Attempts >= w.config.MaxRetries {
		log.Error().
			Int("attempts", entry.Attempts).
			Str("last_error", entry.LastError).
			Msg("WAL entry exceeded max retries, event lost")
		RecordWALMaxRetriesExceeded()
		if err := w.DeleteEntry(ctx, entry.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
			return outcomeMaxRetried, fmt.Errorf("delete max-retried entry %s: %w", entry.ID, err)
		}
		return outcomeMaxRetried, nil
	}

	if honourBackoff && !entry.LastAttemptAt.IsZero() &&
		time.Since(entry.LastAttemptAt) < calculateBackoff(w.config.RetryBackoff, entry.Attempts) {
		return outcomeSkipped, nil
	}

	if err := r.Redeliver(ctx, entry); err != nil {
		log.Warn().Err(err).Int("attempt", entry.Attempts+1).Msg("WAL redelivery failed")
		RecordWALRedeliveryFailure()
		if uerr := w.UpdateAttempt(ctx, entry.ID, err.Error()); uerr != nil && !errors.Is(uerr, ErrEntryNotFound) {
			return outcomeFailed, fmt.Errorf("update attempt for %s: %w", entry.ID, uerr)
		}
		return outcomeFailed, nil
	}

	if err := w.Confirm(ctx, entry.ID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return outcomeRecovered, nil
		}
		return outcomeFailed, fmt.Errorf("confirm entry %s: %w", entry.ID, err)
	}
	return outcomeRecovered, nil
}
