// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/auditstream/internal/wal"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"auditstream.yaml",
	"auditstream.yml",
	"/etc/auditstream/config.yaml",
	"/etc/auditstream/config.yml",
}

// ConfigPathEnvVar names an explicit config file.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	w := wal.DefaultConfig()
	return &Config{
		Source: SourceConfig{
			Kind:          SourceNetlink,
			Timing:        "original",
			Interval:      10 * time.Millisecond,
			Speed:         1,
			QueueSize:     1000,
			NetlinkBuffer: 16 * 1024,
			ReadTimeout:   250 * time.Millisecond,
		},
		Parser: ParserConfig{
			AllowBareWords: true,
			KeepRaw:        true,
		},
		Correlator: CorrelatorConfig{
			IdleTimeout:     2 * time.Second,
			SweepInterval:   250 * time.Millisecond,
			MaxGroups:       10000,
			MaxRecords:      512,
			LateCacheSize:   4096,
			Terminators:     []string{"EOE"},
			SplitStandalone: true,
		},
		Pipeline: PipelineConfig{
			ChannelCapacity:    1000,
			DrainTimeout:       10 * time.Second,
			ParseErrorLogRate:  1,
			ParseErrorLogBurst: 10,
		},
		Sink: SinkConfig{
			Kinds:              []string{SinkFile},
			FilePath:           "-",
			WriteTimeout:       10 * time.Second,
			RetryAttempts:      3,
			RetryBackoff:       100 * time.Millisecond,
			RetryMaxBackoff:    5 * time.Second,
			BreakerThreshold:   5,
			BreakerTimeout:     30 * time.Second,
			BreakerInterval:    time.Minute,
			BreakerMaxRequests: 1,
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			Subject:         "audit.events",
			Host:            "127.0.0.1",
			Port:            4222,
			StoreDir:        "/var/lib/auditstream/nats",
			MaxMemory:       64 * 1024 * 1024,
			MaxStore:        1024 * 1024 * 1024,
			StreamName:      "AUDIT_EVENTS",
			MaxAge:          7 * 24 * time.Hour,
			MaxBytes:        1024 * 1024 * 1024,
			DuplicateWindow: 2 * time.Minute,
		},
		DuckDB: DuckDBConfig{
			Path: "/var/lib/auditstream/audit.duckdb",
		},
		WAL: WALConfig{
			Enabled:          w.Enabled,
			Path:             w.Path,
			SyncWrites:       w.SyncWrites,
			RetryInterval:    w.RetryInterval,
			MaxRetries:       w.MaxRetries,
			RetryBackoff:     w.RetryBackoff,
			CompactInterval:  w.CompactInterval,
			EntryTTL:         w.EntryTTL,
			MemTableSize:     w.MemTableSize,
			ValueLogFileSize: w.ValueLogFileSize,
			NumCompactors:    w.NumCompactors,
			Compression:      w.Compression,
			GCRatio:          w.GCRatio,
			CloseTimeout:     w.CloseTimeout,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Listen:    "127.0.0.1:9090",
			RateLimit: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load reads configuration with layered precedence:
//
//  1. Defaults: built-in values
//  2. Config file: optional YAML (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables: the names in envMappings
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FilePath returns the config file Load would read, or "" when there is
// none.
func FilePath() string { return findConfigFile() }

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come
// from the environment.
var sliceConfigPaths = []string{
	"sink.kinds",
	"correlator.terminators",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"audit_source":          "source.kind",
	"replay_path":           "source.replay_path",
	"replay_timing":         "source.timing",
	"replay_interval":       "source.interval",
	"replay_speed":          "source.speed",
	"source_queue_size":     "source.queue_size",
	"netlink_buffer":        "source.netlink_buffer",
	"netlink_socket_buffer": "source.socket_buffer",
	"netlink_read_timeout":  "source.read_timeout",

	"parser_allow_bare_words": "parser.allow_bare_words",
	"parser_keep_raw":         "parser.keep_raw",

	"correlator_idle_timeout":     "correlator.idle_timeout",
	"correlator_sweep_interval":   "correlator.sweep_interval",
	"correlator_max_groups":       "correlator.max_groups",
	"correlator_max_records":      "correlator.max_records",
	"correlator_late_cache_size":  "correlator.late_cache_size",
	"correlator_terminators":      "correlator.terminators",
	"correlator_split_standalone": "correlator.split_standalone",

	"pipeline_channel_capacity": "pipeline.channel_capacity",
	"pipeline_drain_timeout":    "pipeline.drain_timeout",

	"sink_kinds":             "sink.kinds",
	"sink_file_path":         "sink.file_path",
	"sink_write_timeout":     "sink.write_timeout",
	"sink_retry_attempts":    "sink.retry_attempts",
	"sink_retry_backoff":     "sink.retry_backoff",
	"sink_breaker_threshold": "sink.breaker_threshold",
	"sink_breaker_timeout":   "sink.breaker_timeout",

	"nats_url":         "nats.url",
	"nats_subject":     "nats.subject",
	"nats_embedded":    "nats.embedded",
	"nats_host":        "nats.host",
	"nats_port":        "nats.port",
	"nats_store_dir":   "nats.store_dir",
	"nats_stream_name": "nats.stream_name",
	"nats_max_age":     "nats.max_age",

	"duckdb_path": "duckdb.path",

	"wal_enabled":          "wal.enabled",
	"wal_path":             "wal.path",
	"wal_sync_writes":      "wal.sync_writes",
	"wal_retry_interval":   "wal.retry_interval",
	"wal_max_retries":      "wal.max_retries",
	"wal_retry_backoff":    "wal.retry_backoff",
	"wal_compact_interval": "wal.compact_interval",
	"wal_entry_ttl":        "wal.entry_ttl",

	"metrics_enabled":    "metrics.enabled",
	"metrics_listen":     "metrics.listen",
	"metrics_rate_limit": "metrics.rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"supervisor_shutdown_timeout": "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to its koanf path,
// or "" to skip it.
//
// Examples:
//   - AUDIT_SOURCE -> source.kind
//   - CORRELATOR_IDLE_TIMEOUT -> correlator.idle_timeout
//   - WAL_ENABLED -> wal.enabled
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever path changes. Only settings read
// at use time (log level) take effect without a restart.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
