// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package correlator regroups parsed records into events.
//
// The kernel writes one audited action as several records (SYSCALL, CWD,
// PATH, PROCTITLE, ...) that share an audit ID, interleaved with records of
// other actions. A Correlator keeps one open event per ID in a min-heap
// keyed by ID and ordered by last activity, and closes it when:
//
//   - a record matching the Terminator predicate arrives (EOE by default;
//     auditd does not write EOE to log files, so replays of on-disk logs
//     usually rely on the next two rules or a custom predicate)
//   - the event reaches MaxRecords
//   - Expire finds it idle for longer than IdleTimeout
//   - a new ID arrives while MaxGroups events are open, evicting the least
//     recently active one
//   - Flush is called at end of stream
//
// Standalone record types (user-space messages) are emitted immediately
// when SplitStandalone is set. Records for an ID that was finalized
// recently are emitted as separate single-record "late" events; finalized
// events are never reopened.
//
// A Correlator is single-owner. The pipeline moves it into the correlator
// stage goroutine, which serializes Ingest, Expire and Flush.
package correlator
