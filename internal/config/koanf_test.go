// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Source.Kind != SourceNetlink {
		t.Errorf("Source.Kind = %q, want netlink", cfg.Source.Kind)
	}
	if cfg.Correlator.IdleTimeout != 2*time.Second {
		t.Errorf("Correlator.IdleTimeout = %v, want 2s", cfg.Correlator.IdleTimeout)
	}
	if !reflect.DeepEqual(cfg.Correlator.Terminators, []string{"EOE"}) {
		t.Errorf("Correlator.Terminators = %v, want [EOE]", cfg.Correlator.Terminators)
	}
	if !reflect.DeepEqual(cfg.Sink.Kinds, []string{SinkFile}) {
		t.Errorf("Sink.Kinds = %v, want [file]", cfg.Sink.Kinds)
	}
	if cfg.Sink.FilePath != "-" {
		t.Errorf("Sink.FilePath = %q, want -", cfg.Sink.FilePath)
	}
	if !cfg.Parser.AllowBareWords {
		t.Error("Parser.AllowBareWords should be true by default")
	}
	if cfg.WAL.Enabled {
		t.Error("WAL.Enabled should be false by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile_NoFile(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Pipeline.ChannelCapacity != 1000 {
		t.Errorf("Pipeline.ChannelCapacity = %d, want 1000", cfg.Pipeline.ChannelCapacity)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auditstream.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: replay
  replay_path: /tmp/capture.log
  timing: immediate
correlator:
  idle_timeout: 5s
  terminators: [EOE, PROCTITLE]
sink:
  kinds: [file, duckdb]
  file_path: /tmp/events.jsonl
duckdb:
  path: ""
logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Source.Kind != SourceReplay || cfg.Source.ReplayPath != "/tmp/capture.log" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Correlator.IdleTimeout != 5*time.Second {
		t.Errorf("IdleTimeout = %v, want 5s", cfg.Correlator.IdleTimeout)
	}
	if !reflect.DeepEqual(cfg.Correlator.Terminators, []string{"EOE", "PROCTITLE"}) {
		t.Errorf("Terminators = %v", cfg.Correlator.Terminators)
	}
	if !cfg.HasSink(SinkDuckDB) || !cfg.HasSink(SinkFile) || cfg.HasSink(SinkNATS) {
		t.Errorf("Sink.Kinds = %v", cfg.Sink.Kinds)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Sink.RetryAttempts != 3 {
		t.Errorf("Sink.RetryAttempts = %d, want 3", cfg.Sink.RetryAttempts)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
`)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("AUDIT_SOURCE", "replay")
	t.Setenv("REPLAY_PATH", "/var/log/audit/audit.log")
	t.Setenv("REPLAY_TIMING", "interval")
	t.Setenv("REPLAY_INTERVAL", "5ms")
	t.Setenv("SINK_KINDS", "file, nats")
	t.Setenv("NATS_EMBEDDED", "true")
	t.Setenv("NATS_STORE_DIR", t.TempDir())
	t.Setenv("CORRELATOR_IDLE_TIMEOUT", "3s")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Source.Kind != SourceReplay || cfg.Source.Timing != "interval" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Source.Interval != 5*time.Millisecond {
		t.Errorf("Source.Interval = %v, want 5ms", cfg.Source.Interval)
	}
	if !reflect.DeepEqual(cfg.Sink.Kinds, []string{"file", "nats"}) {
		t.Errorf("Sink.Kinds = %v, want [file nats]", cfg.Sink.Kinds)
	}
	if !cfg.NATS.Embedded {
		t.Error("NATS.Embedded should be true")
	}
	if cfg.Correlator.IdleTimeout != 3*time.Second {
		t.Errorf("IdleTimeout = %v, want 3s", cfg.Correlator.IdleTimeout)
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  channel_capacity: 64
`)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.ChannelCapacity != 64 {
		t.Errorf("ChannelCapacity = %d, want 64", cfg.Pipeline.ChannelCapacity)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := LoadFile(writeConfig(t, "source: [unclosed")); err == nil {
			t.Error("expected parse error")
		}
	})
	t.Run("invalid value", func(t *testing.T) {
		if _, err := LoadFile(writeConfig(t, "source:\n  kind: kafka\n")); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"AUDIT_SOURCE", "source.kind"},
		{"CORRELATOR_IDLE_TIMEOUT", "correlator.idle_timeout"},
		{"WAL_ENABLED", "wal.enabled"},
		{"log_level", "logging.level"},
		{"HOME", ""},
		{"PATH", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
}
