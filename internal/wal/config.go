// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package wal

import "time"

// Config holds WAL settings. It is populated from the wal section of the
// application config.
type Config struct {
	// Enabled controls whether failed sink writes are spooled. When
	// disabled, an event that exhausts its retries is reported at error
	// level instead.
	Enabled bool

	// Path is the BadgerDB directory. Should be on a durable filesystem.
	Path string

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// RetryInterval is the time between redelivery passes.
	RetryInterval time.Duration

	// MaxRetries is the number of redelivery attempts before an entry is
	// dropped with an error log.
	MaxRetries int

	// RetryBackoff is the base of the per-entry exponential backoff.
	RetryBackoff time.Duration

	// CompactInterval is the time between compaction runs.
	CompactInterval time.Duration

	// EntryTTL bounds how long an undelivered entry is kept.
	EntryTTL time.Duration

	// BadgerDB tuning
	MemTableSize     int64
	ValueLogFileSize int64
	NumCompactors    int
	BlockCacheSize   int64

	// Compression enables Snappy for stored entries.
	Compression bool

	// GCRatio is the value log GC discard ratio.
	GCRatio float64

	// CloseTimeout bounds Close.
	CloseTimeout time.Duration
}

// DefaultConfig favours durability over throughput.
func DefaultConfig() Config {
	return Config{
		Enabled:          false,
		Path:             "/var/lib/auditstream/wal",
		SyncWrites:       true,
		RetryInterval:    30 * time.Second,
		MaxRetries:       100,
		RetryBackoff:     5 * time.Second,
		CompactInterval:  1 * time.Hour,
		EntryTTL:         168 * time.Hour,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		BlockCacheSize:   64 * 1024 * 1024,
		Compression:      true,
		GCRatio:          0.5,
		CloseTimeout:     30 * time.Second,
	}
}

// Validate checks the production minimums. A disabled WAL is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch {
	case c.Path == "":
		return &ConfigError{Field: "Path", Message: "WAL path is required"}
	case c.RetryInterval < time.Second:
		return &ConfigError{Field: "RetryInterval", Message: "must be at least 1 second"}
	case c.MaxRetries < 1:
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	case c.RetryBackoff < time.Second:
		return &ConfigError{Field: "RetryBackoff", Message: "must be at least 1 second"}
	case c.CompactInterval < time.Minute:
		return &ConfigError{Field: "CompactInterval", Message: "must be at least 1 minute"}
	case c.EntryTTL < time.Hour:
		return &ConfigError{Field: "EntryTTL", Message: "must be at least 1 hour"}
	case c.MemTableSize < 1024*1024:
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	case c.ValueLogFileSize < 1024*1024:
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	case c.NumCompactors < 2:
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	case c.GCRatio <= 0 || c.GCRatio >= 1:
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1 exclusive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "WAL config error: " + e.Field + ": " + e.Message
}
