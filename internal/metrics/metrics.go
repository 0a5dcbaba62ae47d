// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline instrumentation, one block per stage:
// - Source: lines and bytes received, transport errors
// - Parser: records parsed, failures by kind
// - Correlator: events finalized by reason, groups in flight
// - Sink: writes by sink and outcome, retries, circuit breaker state
// - Channels: depth of each inter-stage queue

var (
	// Source Metrics
	SourceLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_source_lines_total",
			Help: "Total number of raw lines produced by the source",
		},
		[]string{"source"},
	)

	SourceBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_source_bytes_total",
			Help: "Total number of raw bytes produced by the source",
		},
		[]string{"source"},
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_source_errors_total",
			Help: "Total number of source receive errors",
		},
		[]string{"source", "error_type"}, // "overflow", "receive", "non_utf8"
	)

	// Parser Metrics
	RecordsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_records_parsed_total",
			Help: "Total number of records parsed, by record type",
		},
		[]string{"type"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_parse_errors_total",
			Help: "Total number of lines that failed to parse, by kind",
		},
		[]string{"kind"}, // "empty_line", "missing_audit_id", "malformed_key_value"
	)

	// Correlator Metrics
	EventsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_events_finalized_total",
			Help: "Total number of events finalized, by reason",
		},
		[]string{"reason"},
	)

	EventRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auditstream_event_records",
			Help:    "Number of records per finalized event",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32, 64, 128, 512},
		},
	)

	GroupsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auditstream_groups_in_flight",
			Help: "Current number of open correlation groups",
		},
	)

	// Sink Metrics
	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_sink_writes_total",
			Help: "Total number of sink writes, by sink and outcome",
		},
		[]string{"sink", "outcome"}, // "success", "error", "spooled", "dropped"
	)

	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditstream_sink_write_duration_seconds",
			Help:    "Duration of sink writes in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"sink"},
	)

	SinkRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditstream_sink_retries_total",
			Help: "Total number of sink write retries",
		},
		[]string{"sink"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditstream_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Channel Metrics
	ChannelDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auditstream_channel_depth",
			Help: "Current number of items queued between pipeline stages",
		},
		[]string{"hop"}, // "records", "events"
	)
)

// RecordSourceLine records one raw line from a source.
func RecordSourceLine(source string, n int) {
	SourceLines.WithLabelValues(source).Inc()
	SourceBytes.WithLabelValues(source).Add(float64(n))
}

// RecordSourceError records a transport fault.
func RecordSourceError(source, errorType string) {
	SourceErrors.WithLabelValues(source, errorType).Inc()
}

// RecordParsed records a successfully parsed record.
func RecordParsed(recordType string) {
	RecordsParsed.WithLabelValues(recordType).Inc()
}

// RecordParseError records a line that failed to parse.
func RecordParseError(kind string) {
	ParseErrors.WithLabelValues(kind).Inc()
}

// RecordEventFinalized records an event leaving the correlator.
func RecordEventFinalized(reason string, records int) {
	EventsFinalized.WithLabelValues(reason).Inc()
	EventRecords.Observe(float64(records))
}

// SetGroupsInFlight updates the open-group gauge.
func SetGroupsInFlight(n int) {
	GroupsInFlight.Set(float64(n))
}

// RecordSinkWrite records one sink write attempt.
func RecordSinkWrite(sink string, duration time.Duration, err error) {
	SinkWriteDuration.WithLabelValues(sink).Observe(duration.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SinkWrites.WithLabelValues(sink, outcome).Inc()
}

// RecordSinkOutcome records a terminal outcome other than a plain write,
// such as "spooled" or "dropped".
func RecordSinkOutcome(sink, outcome string) {
	SinkWrites.WithLabelValues(sink, outcome).Inc()
}

// RecordSinkRetry records a retried sink write.
func RecordSinkRetry(sink string) {
	SinkRetries.WithLabelValues(sink).Inc()
}

// SetCircuitBreakerState records a breaker state transition.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// SetChannelDepth records the depth of an inter-stage channel.
func SetChannelDepth(hop string, depth int) {
	ChannelDepth.WithLabelValues(hop).Set(float64(depth))
}
