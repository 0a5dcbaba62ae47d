// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/validation"
)

// Validate checks field constraints first, then the rules that span
// fields or sections. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if err := validation.ValidateStruct(c); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.validateSource()...)
	errs = append(errs, c.validateCorrelator()...)
	errs = append(errs, c.validateSinks()...)

	if c.WAL.Enabled {
		w := c.WALSettings()
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("wal: %w", err))
		}
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

func (c *Config) validateSource() []error {
	var errs []error
	if c.Source.Kind == SourceReplay && c.Source.ReplayPath == "" {
		errs = append(errs, errors.New("source.replay_path is required for the replay source"))
	}
	if c.Source.Timing == "interval" && c.Source.Interval <= 0 {
		errs = append(errs, errors.New("source.interval must be positive with interval timing"))
	}
	return errs
}

func (c *Config) validateCorrelator() []error {
	var errs []error
	if c.Correlator.SweepInterval > c.Correlator.IdleTimeout {
		errs = append(errs, fmt.Errorf("correlator.sweep_interval (%s) must not exceed correlator.idle_timeout (%s)",
			c.Correlator.SweepInterval, c.Correlator.IdleTimeout))
	}
	for _, name := range c.Correlator.Terminators {
		if !audit.LookupType(name).Known() {
			errs = append(errs, fmt.Errorf("correlator.terminators: unknown record type %q", name))
		}
	}
	return errs
}

func (c *Config) validateSinks() []error {
	var errs []error
	seen := make(map[string]bool, len(c.Sink.Kinds))
	for _, kind := range c.Sink.Kinds {
		if seen[kind] {
			errs = append(errs, fmt.Errorf("sink.kinds: %s listed twice", kind))
		}
		seen[kind] = true
	}
	if seen[SinkFile] && c.Sink.FilePath == "" {
		errs = append(errs, errors.New("sink.file_path is required for the file sink"))
	}
	if seen[SinkNATS] {
		if c.NATS.Embedded && c.NATS.StoreDir == "" {
			errs = append(errs, errors.New("nats.store_dir is required for the embedded server"))
		}
		if !c.NATS.Embedded && c.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required unless nats.embedded is set"))
		}
	}
	return errs
}

// HasSink reports whether kind is among the configured sinks.
func (c *Config) HasSink(kind string) bool {
	for _, k := range c.Sink.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
