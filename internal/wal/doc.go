// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package wal spools finalized audit events that a sink could not accept
// to a BadgerDB write-ahead log, and redelivers them later.
//
// # Flow
//
//	Sink write fails (after in-process retries)
//	      ↓
//	WAL Write (pending:<id>, TTL)
//	      ↓
//	RetryLoop ─ Redeliverer ─→ sink named by Entry.Sink
//	      ↓ success                 ↓ failure
//	confirmed:<id>            Attempts++, exponential backoff
//	      ↓
//	Compactor deletes confirmed and expired entries, runs value log GC
//
// Entries that exhaust MaxRetries or outlive EntryTTL are dropped and logged
// at error level; those events are lost.
//
// # Components
//
//   - BadgerWAL: storage, Write/Confirm/UpdateAttempt/GetPending
//   - RecoverPending: one startup pass that ignores backoff
//   - RetryLoop: periodic redelivery honouring per-entry backoff
//   - Compactor: periodic cleanup and garbage collection
//
// # Usage
//
//	cfg := wal.DefaultConfig()
//	cfg.Enabled = true
//	w, err := wal.Open(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	if _, err := w.RecoverPending(ctx, redeliverer); err != nil {
//	    return err
//	}
//	loop := wal.NewRetryLoop(w, redeliverer)
//	_ = loop.Start(ctx)
//	defer loop.Stop()
//
// # Metrics
//
// All collectors are prefixed auditstream_wal_ and registered with the
// default Prometheus registry.
package wal
