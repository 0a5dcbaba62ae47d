// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package config

import "time"

// Config is the complete process configuration.
type Config struct {
	Source     SourceConfig     `koanf:"source"`
	Parser     ParserConfig     `koanf:"parser"`
	Correlator CorrelatorConfig `koanf:"correlator"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Sink       SinkConfig       `koanf:"sink"`
	NATS       NATSConfig       `koanf:"nats"`
	DuckDB     DuckDBConfig     `koanf:"duckdb"`
	WAL        WALConfig        `koanf:"wal"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// Source kinds.
const (
	SourceNetlink = "netlink"
	SourceReplay  = "replay"
)

// SourceConfig selects and tunes the record source.
type SourceConfig struct {
	// Kind is netlink (live kernel feed) or replay (capture file).
	Kind string `koanf:"kind" validate:"oneof=netlink replay"`

	// ReplayPath is the capture file for the replay source.
	ReplayPath string `koanf:"replay_path"`

	// Timing is immediate, original, or interval.
	Timing string `koanf:"timing" validate:"oneof=immediate original interval"`

	// Interval between lines in interval timing.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// Speed multiplies original timing; 2 replays twice as fast.
	Speed float64 `koanf:"speed" validate:"gt=0"`

	// QueueSize bounds lines read ahead of the parser.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// NetlinkBuffer is the receive buffer for one datagram.
	NetlinkBuffer int `koanf:"netlink_buffer" validate:"min=4096"`

	// SocketBuffer sets SO_RCVBUF on the netlink socket. Zero keeps the
	// kernel default.
	SocketBuffer int `koanf:"socket_buffer" validate:"gte=0"`

	// ReadTimeout bounds each blocking receive so Stop is observed.
	ReadTimeout time.Duration `koanf:"read_timeout" validate:"gte=10ms"`
}

// ParserConfig tunes line parsing.
type ParserConfig struct {
	// AllowBareWords keeps lines with tokens lacking '=' instead of
	// rejecting them. On by default so AVC records stay in their event.
	AllowBareWords bool `koanf:"allow_bare_words"`

	// KeepRaw stores the original line on each record.
	KeepRaw bool `koanf:"keep_raw"`
}

// CorrelatorConfig controls grouping.
type CorrelatorConfig struct {
	IdleTimeout   time.Duration `koanf:"idle_timeout" validate:"gte=1ms"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gte=1ms"`
	MaxGroups     int           `koanf:"max_groups" validate:"min=1"`
	MaxRecords    int           `koanf:"max_records" validate:"min=1"`

	// LateCacheSize is how many finalized IDs are remembered to detect late
	// records. Zero disables late detection.
	LateCacheSize int `koanf:"late_cache_size" validate:"gte=0"`

	// Terminators are the record types that close a group.
	Terminators []string `koanf:"terminators" validate:"min=1,dive,required"`

	// SplitStandalone emits user-space records as their own events.
	SplitStandalone bool `koanf:"split_standalone"`
}

// PipelineConfig controls stage wiring and shutdown.
type PipelineConfig struct {
	ChannelCapacity int           `koanf:"channel_capacity" validate:"min=1"`
	DrainTimeout    time.Duration `koanf:"drain_timeout" validate:"gte=0"`

	// ParseErrorLogRate is the sustained parse-error log rate per second.
	ParseErrorLogRate  float64 `koanf:"parse_error_log_rate" validate:"gt=0"`
	ParseErrorLogBurst int     `koanf:"parse_error_log_burst" validate:"min=1"`
}

// Sink kinds.
const (
	SinkFile   = "file"
	SinkNATS   = "nats"
	SinkDuckDB = "duckdb"
)

// SinkConfig selects the destinations and delivery policy.
type SinkConfig struct {
	Kinds []string `koanf:"kinds" validate:"min=1,dive,oneof=file nats duckdb"`

	// FilePath is the JSON lines output; "-" is stdout.
	FilePath string `koanf:"file_path"`

	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=1ms"`
	RetryAttempts   int           `koanf:"retry_attempts" validate:"min=1"`
	RetryBackoff    time.Duration `koanf:"retry_backoff" validate:"gte=0"`
	RetryMaxBackoff time.Duration `koanf:"retry_max_backoff" validate:"gtefield=RetryBackoff"`

	// BreakerThreshold is the consecutive failures that open a sink's
	// circuit breaker. Zero disables the breaker.
	BreakerThreshold   uint32        `koanf:"breaker_threshold"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gte=0"`
	BreakerInterval    time.Duration `koanf:"breaker_interval" validate:"gte=0"`
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests" validate:"min=1"`
}

// NATSConfig configures the NATS JetStream sink.
type NATSConfig struct {
	URL     string `koanf:"url"`
	Subject string `koanf:"subject" validate:"required"`

	// Embedded runs a NATS server inside the process.
	Embedded  bool   `koanf:"embedded"`
	Host      string `koanf:"host"`
	Port      int    `koanf:"port" validate:"gte=-1,lte=65535"`
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory" validate:"gte=0"`
	MaxStore  int64  `koanf:"max_store" validate:"gte=0"`

	StreamName      string        `koanf:"stream_name" validate:"required"`
	MaxAge          time.Duration `koanf:"max_age" validate:"gte=0"`
	MaxBytes        int64         `koanf:"max_bytes"`
	DuplicateWindow time.Duration `koanf:"duplicate_window" validate:"gte=0"`
}

// DuckDBConfig configures the DuckDB sink.
type DuckDBConfig struct {
	// Path to the database file. Empty uses an in-memory database.
	Path string `koanf:"path"`
}

// WALConfig mirrors wal.Config; wal.Config.Validate applies the limits.
type WALConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Path             string        `koanf:"path"`
	SyncWrites       bool          `koanf:"sync_writes"`
	RetryInterval    time.Duration `koanf:"retry_interval"`
	MaxRetries       int           `koanf:"max_retries"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	CompactInterval  time.Duration `koanf:"compact_interval"`
	EntryTTL         time.Duration `koanf:"entry_ttl"`
	MemTableSize     int64         `koanf:"memtable_size"`
	ValueLogFileSize int64         `koanf:"vlog_file_size"`
	NumCompactors    int           `koanf:"num_compactors"`
	Compression      bool          `koanf:"compression"`
	GCRatio          float64       `koanf:"gc_ratio"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen" validate:"omitempty,hostname_port"`

	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig configures the service tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}
