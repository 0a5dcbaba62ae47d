// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

/*
Package sink delivers finalized audit events to their destinations.

# Sinks

  - FileSink: newline-delimited JSON to a file or stdout
  - NATSSink: JetStream publish through watermill, optionally against an
    embedded nats-server
  - DuckDBSink: audit_events and audit_records tables in an embedded DuckDB
  - MemorySink: in-memory collection for tests
  - Multi: fan-out to several sinks

# Delivery guarantees

Resilient wraps a sink with a gobreaker circuit breaker and bounded
exponential retries. When every attempt fails the event is spooled to the
write-ahead log; the WAL retry loop later hands it back through a Router,
which looks the sink up by name and calls Deliver. Without a WAL the
failure is logged at error level and counted as dropped.

	w, _ := wal.Open(&walCfg)
	file, _ := sink.NewFileSink("/var/log/auditstream/events.jsonl")
	r := sink.NewResilient(file, sink.DefaultRetryConfig(), sink.DefaultBreakerConfig(), w)
	loop := wal.NewRetryLoop(w, sink.NewRouter(r))

NATS messages carry the event UUID as Nats-Msg-Id and DuckDB inserts
ignore conflicts on it, so redelivery does not duplicate events.
*/
package sink
