// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package wal

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/auditstream/internal/logging"
)

// Compactor periodically removes confirmed and expired entries and runs
// BadgerDB garbage collection.
type Compactor struct {
	wal    *BadgerWAL
	config Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu               sync.Mutex
	running          bool
	lastRun          time.Time
	lastEntriesCount int64
}

// CompactorStats contains statistics about the last compaction.
type CompactorStats struct {
	LastRun          time.Time
	LastEntriesCount int64
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *BadgerWAL) *Compactor {
	return &Compactor{wal: w, config: w.GetConfig()}
}

// Start launches the compaction loop. A second Start is a no-op.
func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(loopCtx)

	logging.Info().Dur("interval", c.config.CompactInterval).Msg("WAL compactor started")
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("WAL compactor stopped")
}

// IsRunning reports whether the compactor is active.
func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Compactor) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CompactInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunNow()
		}
	}
}

// RunNow performs one compaction immediately.
func (c *Compactor) RunNow() {
	start := time.Now()

	confirmed, err := c.deleteConfirmedEntries()
	if err != nil {
		logging.Error().Err(err).Msg("WAL compaction failed to delete confirmed entries")
	}
	expired, err := c.deleteExpiredEntries(start)
	if err != nil {
		logging.Error().Err(err).Msg("WAL compaction failed to delete expired entries")
	}
	if err := c.wal.RunGC(); err != nil {
		logging.Error().Err(err).Msg("WAL compaction GC error")
	}

	total := confirmed + expired
	now := time.Now()
	c.mu.Lock()
	c.lastRun = now
	c.lastEntriesCount = total
	c.mu.Unlock()
	c.wal.markCompacted(now)

	duration := time.Since(start)
	RecordWALCompaction()
	RecordWALCompactionLatency(duration.Seconds())
	if total > 0 {
		RecordWALEntriesCompacted(total)
		logging.Info().
			Int64("total_deleted", total).
			Int64("confirmed", confirmed).
			Int64("expired", expired).
			Dur("duration", duration).
			Msg("WAL compaction removed entries")
	}
}

// GetStats returns compaction statistics.
func (c *Compactor) GetStats() CompactorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CompactorStats{LastRun: c.lastRun, LastEntriesCount: c.lastEntriesCount}
}

func (c *Compactor) deleteConfirmedEntries() (int64, error) {
	return c.deleteWhere(prefixConfirmed, false, nil)
}

// deleteExpiredEntries removes pending entries older than EntryTTL that the
// retry loop has not yet picked up. Badger's own TTL covers most of these;
// this catches entries written while EntryTTL was disabled.
func (c *Compactor) deleteExpiredEntries(now time.Time) (int64, error) {
	if c.config.EntryTTL <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-c.config.EntryTTL)
	n, err := c.deleteWhere(prefixPending, true, func(e *Entry) bool {
		return e.CreatedAt.Before(cutoff)
	})
	RecordWALExpiredEntries(n)
	return n, err
}

// deleteWhere removes the keys under prefix whose entries satisfy match.
// A nil predicate matches every key.
func (c *Compactor) deleteWhere(prefix string, prefetch bool, match func(*Entry) bool) (int64, error) {
	var count int64
	err := c.wal.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = prefetch
		it := txn.NewIterator(opts)

		var keys [][]byte
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			if match != nil {
				var entry Entry
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &entry)
				}); err != nil || !match(&entry) {
					continue
				}
			}
			keys = append(keys, item.KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
