// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package wal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for WAL operations
var (
	walWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_writes_total",
		Help: "Total number of events spooled to the WAL",
	})

	walWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_write_failures_total",
		Help: "Total number of failed WAL writes",
	})

	walConfirmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_confirms_total",
		Help: "Total number of spooled events redelivered to their sink",
	})

	walRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_retries_total",
		Help: "Total number of failed redelivery attempts recorded",
	})

	walRedeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_redelivery_failures_total",
		Help: "Total number of sink errors during redelivery",
	})

	walPendingEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auditstream_wal_pending_entries",
		Help: "Current number of spooled events awaiting redelivery",
	})

	walConfirmedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auditstream_wal_confirmed_entries",
		Help: "Current number of redelivered entries awaiting compaction",
	})

	walWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auditstream_wal_write_latency_seconds",
		Help:    "WAL write latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	walDBSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auditstream_wal_db_size_bytes",
		Help: "BadgerDB database size in bytes",
	})

	walRecoveredEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_recovered_entries_total",
		Help: "Total number of pending entries found at startup",
	})

	walMaxRetriesExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_max_retries_exceeded_total",
		Help: "Total number of entries dropped after exhausting retries",
	})

	walExpiredEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_expired_entries_total",
		Help: "Total number of entries dropped after their TTL",
	})

	walCompactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_compactions_total",
		Help: "Total number of WAL compaction runs",
	})

	walEntriesCompacted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_entries_compacted_total",
		Help: "Total number of entries removed during compaction",
	})

	walCompactionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auditstream_wal_compaction_latency_seconds",
		Help:    "WAL compaction latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	walGCLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auditstream_wal_gc_latency_seconds",
		Help:    "BadgerDB value log GC latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	walGCRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auditstream_wal_gc_runs_total",
		Help: "Total number of BadgerDB value log GC runs",
	})
)

// RecordWALWrite increments the write counter.
func RecordWALWrite() {
	walWritesTotal.Inc()
}

// RecordWALWriteFailure increments the write failure counter.
func RecordWALWriteFailure() {
	walWriteFailures.Inc()
}

// RecordWALConfirm increments the confirm counter.
func RecordWALConfirm() {
	walConfirmsTotal.Inc()
}

// RecordWALRetry increments the retry counter.
func RecordWALRetry() {
	walRetriesTotal.Inc()
}

// RecordWALRedeliveryFailure increments the redelivery failure counter.
func RecordWALRedeliveryFailure() {
	walRedeliveryFailures.Inc()
}

// UpdateWALPendingEntries sets the pending entries gauge.
func UpdateWALPendingEntries(count int64) {
	walPendingEntries.Set(float64(count))
}

// UpdateWALConfirmedEntries sets the confirmed entries gauge.
func UpdateWALConfirmedEntries(count int64) {
	walConfirmedEntries.Set(float64(count))
}

// RecordWALWriteLatency records write latency.
func RecordWALWriteLatency(seconds float64) {
	walWriteLatency.Observe(seconds)
}

// UpdateWALDBSize sets the database size gauge.
func UpdateWALDBSize(bytes int64) {
	walDBSizeBytes.Set(float64(bytes))
}

// RecordWALRecoveredEntries adds to the startup recovery counter.
func RecordWALRecoveredEntries(count int64) {
	walRecoveredEntries.Add(float64(count))
}

// RecordWALMaxRetriesExceeded increments the max-retries counter.
func RecordWALMaxRetriesExceeded() {
	walMaxRetriesExceeded.Inc()
}

// RecordWALExpiredEntry increments the expired counter.
func RecordWALExpiredEntry() {
	walExpiredEntries.Inc()
}

// RecordWALExpiredEntries adds count to the expired counter.
func RecordWALExpiredEntries(count int64) {
	walExpiredEntries.Add(float64(count))
}

// RecordWALCompaction increments the compaction counter.
func RecordWALCompaction() {
	walCompactionsTotal.Inc()
}

// RecordWALEntriesCompacted adds to the compacted entries counter.
func RecordWALEntriesCompacted(count int64) {
	walEntriesCompacted.Add(float64(count))
}

// RecordWALCompactionLatency records compaction latency.
func RecordWALCompactionLatency(seconds float64) {
	walCompactionLatency.Observe(seconds)
}

// RecordWALGCLatency records GC latency.
func RecordWALGCLatency(seconds float64) {
	walGCLatency.Observe(seconds)
}

// RecordWALGCRun increments the GC run counter.
func RecordWALGCRun() {
	walGCRuns.Inc()
}
