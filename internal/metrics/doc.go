// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

/*
Package metrics exposes Prometheus instrumentation for the pipeline.

Collectors are package-level promauto values registered with the default
registry; stages call the Record* and Set* helpers rather than touching
collectors directly.

# Metrics Endpoint

NewServer builds a small chi router serving:

	GET /metrics   Prometheus text format
	GET /healthz   200 while the supervisor tree is running

Requests are rate limited per client IP with httprate.

# Available Metrics

Source:
  - auditstream_source_lines_total{source}
  - auditstream_source_bytes_total{source}
  - auditstream_source_errors_total{source,error_type}

Parser:
  - auditstream_records_parsed_total{type}
  - auditstream_parse_errors_total{kind}

Correlator:
  - auditstream_events_finalized_total{reason}
  - auditstream_event_records (histogram)
  - auditstream_groups_in_flight

Sink:
  - auditstream_sink_writes_total{sink,outcome}
  - auditstream_sink_write_duration_seconds{sink}
  - auditstream_sink_retries_total{sink}
  - auditstream_circuit_breaker_state{name}

Pipeline:
  - auditstream_channel_depth{hop}

The WAL package registers its own auditstream_wal_* collectors.
*/
package metrics
