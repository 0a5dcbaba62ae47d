// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Command auditstream reads Linux audit records, groups them into events,
// and delivers the events to one or more sinks.
//
// # Application Architecture
//
// Startup runs in this order:
//
//  1. Configuration: defaults, optional YAML file, environment (koanf)
//  2. Source: the kernel audit netlink socket or a replayed capture file
//  3. WAL (optional): BadgerDB spool for events a sink could not take,
//     with recovery of entries left by the previous run
//  4. Sinks: file (JSON lines), NATS JetStream, DuckDB, each behind
//     retries and a circuit breaker
//  5. Supervisor tree: pipeline stages, WAL retry loop and compactor,
//     metrics server
//
// # Configuration
//
// See package internal/config. The common settings:
//
//   - AUDIT_SOURCE: netlink (default) or replay
//   - REPLAY_PATH, REPLAY_TIMING: capture file and immediate|original|interval
//   - SINK_KINDS: comma-separated list of file, nats, duckdb
//   - SINK_FILE_PATH: output file, "-" for stdout
//   - WAL_ENABLED, WAL_PATH: durable spool
//   - METRICS_LISTEN: address for /metrics and /healthz
//   - LOG_LEVEL, LOG_FORMAT
//
// # Signal Handling
//
// On SIGINT or SIGTERM the source is stopped and the pipeline drained:
// queued lines are parsed, open groups are flushed, and the sink writes
// what remains, bounded by pipeline.drain_timeout. A replay source exits
// on its own once every event has been delivered.
//
// # Example Usage
//
// Live capture (requires CAP_AUDIT_READ):
//
//	SINK_KINDS=file,duckdb DUCKDB_PATH=/var/lib/auditstream/audit.duckdb ./auditstream
//
// Replay a capture as fast as possible to stdout:
//
//	AUDIT_SOURCE=replay REPLAY_PATH=/var/log/audit/audit.log REPLAY_TIMING=immediate ./auditstream
package main
