// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package config

import (
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/auditstream/internal/correlator"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/metrics"
	"github.com/tomtom215/auditstream/internal/parser"
	"github.com/tomtom215/auditstream/internal/pipeline"
	"github.com/tomtom215/auditstream/internal/sink"
	"github.com/tomtom215/auditstream/internal/source"
	"github.com/tomtom215/auditstream/internal/supervisor"
	"github.com/tomtom215/auditstream/internal/wal"
)

// ReplaySettings converts the source section for source.NewReplay. Timing
// has already been checked by Validate.
func (c *Config) ReplaySettings() source.ReplayConfig {
	timing, err := source.ParseTiming(c.Source.Timing)
	if err != nil {
		timing = source.TimingOriginal
	}
	return source.ReplayConfig{
		Timing:    timing,
		Interval:  c.Source.Interval,
		Speed:     c.Source.Speed,
		QueueSize: c.Source.QueueSize,
	}
}

func (c *Config) NetlinkSettings() source.NetlinkConfig {
	return source.NetlinkConfig{
		BufferSize:   c.Source.NetlinkBuffer,
		SocketBuffer: c.Source.SocketBuffer,
		ReadTimeout:  c.Source.ReadTimeout,
		QueueSize:    c.Source.QueueSize,
	}
}

func (c *Config) ParserOptions() parser.Options {
	return parser.Options{
		AllowBareWords: c.Parser.AllowBareWords,
		KeepRaw:        c.Parser.KeepRaw,
	}
}

// CorrelatorSettings converts the correlator section. The clock is left
// nil so the correlator uses wall time.
func (c *Config) CorrelatorSettings() correlator.Config {
	return correlator.Config{
		IdleTimeout:     c.Correlator.IdleTimeout,
		MaxGroups:       c.Correlator.MaxGroups,
		MaxRecords:      c.Correlator.MaxRecords,
		RecentIDs:       c.Correlator.LateCacheSize,
		Terminator:      correlator.TerminateOn(c.Correlator.Terminators...),
		SplitStandalone: c.Correlator.SplitStandalone,
	}
}

func (c *Config) PipelineSettings() pipeline.Config {
	return pipeline.Config{
		ChannelCapacity:    c.Pipeline.ChannelCapacity,
		SweepInterval:      c.Correlator.SweepInterval,
		WriteTimeout:       c.Sink.WriteTimeout,
		ParseErrorLogRate:  rate.Limit(c.Pipeline.ParseErrorLogRate),
		ParseErrorLogBurst: c.Pipeline.ParseErrorLogBurst,
	}
}

func (c *Config) RetrySettings() sink.RetryConfig {
	return sink.RetryConfig{
		MaxAttempts:    c.Sink.RetryAttempts,
		InitialBackoff: c.Sink.RetryBackoff,
		MaxBackoff:     c.Sink.RetryMaxBackoff,
		WriteTimeout:   c.Sink.WriteTimeout,
	}
}

func (c *Config) BreakerSettings() sink.BreakerConfig {
	return sink.BreakerConfig{
		FailureThreshold: c.Sink.BreakerThreshold,
		MaxRequests:      c.Sink.BreakerMaxRequests,
		Interval:         c.Sink.BreakerInterval,
		Timeout:          c.Sink.BreakerTimeout,
	}
}

// NATSSettings converts the nats section. Stream limits not exposed in
// the file keep the sink defaults.
func (c *Config) NATSSettings() sink.NATSConfig {
	cfg := sink.DefaultNATSConfig()
	cfg.URL = c.NATS.URL
	cfg.Subject = c.NATS.Subject
	cfg.Stream.Name = c.NATS.StreamName
	cfg.Stream.Subjects = []string{c.NATS.Subject + ".>"}
	cfg.Stream.MaxAge = c.NATS.MaxAge
	if c.NATS.MaxBytes != 0 {
		cfg.Stream.MaxBytes = c.NATS.MaxBytes
	}
	cfg.Stream.DuplicateWindow = c.NATS.DuplicateWindow
	if c.NATS.Embedded {
		cfg.Embedded = &sink.EmbeddedServerConfig{
			Host:      c.NATS.Host,
			Port:      c.NATS.Port,
			StoreDir:  c.NATS.StoreDir,
			MaxMemory: c.NATS.MaxMemory,
			MaxStore:  c.NATS.MaxStore,
		}
	}
	return cfg
}

// WALSettings converts the wal section. Badger's block cache is not
// exposed and keeps its default.
func (c *Config) WALSettings() wal.Config {
	w := wal.DefaultConfig()
	w.Enabled = c.WAL.Enabled
	w.Path = c.WAL.Path
	w.SyncWrites = c.WAL.SyncWrites
	w.RetryInterval = c.WAL.RetryInterval
	w.MaxRetries = c.WAL.MaxRetries
	w.RetryBackoff = c.WAL.RetryBackoff
	w.CompactInterval = c.WAL.CompactInterval
	w.EntryTTL = c.WAL.EntryTTL
	w.MemTableSize = c.WAL.MemTableSize
	w.ValueLogFileSize = c.WAL.ValueLogFileSize
	w.NumCompactors = c.WAL.NumCompactors
	w.Compression = c.WAL.Compression
	w.GCRatio = c.WAL.GCRatio
	w.CloseTimeout = c.WAL.CloseTimeout
	return w
}

func (c *Config) TreeSettings() supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: c.Supervisor.FailureThreshold,
		FailureDecay:     c.Supervisor.FailureDecay,
		FailureBackoff:   c.Supervisor.FailureBackoff,
		ShutdownTimeout:  c.Supervisor.ShutdownTimeout,
	}
}

// LoggingSettings converts the logging section. Logs go to stderr so the
// file sink can own stdout.
func (c *Config) LoggingSettings() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Caller:    c.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	}
}

func (c *Config) MetricsSettings() metrics.ServerConfig {
	return metrics.ServerConfig{
		Addr:      c.Metrics.Listen,
		RateLimit: c.Metrics.RateLimit,
	}
}

// DrainTimeout is how long shutdown waits for in-flight events.
func (c *Config) DrainTimeout() time.Duration {
	return c.Pipeline.DrainTimeout
}
