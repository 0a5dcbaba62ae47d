// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/config"
	"github.com/tomtom215/auditstream/internal/correlator"
	"github.com/tomtom215/auditstream/internal/parser"
	"github.com/tomtom215/auditstream/internal/pipeline"
)

const capture = `type=SYSCALL msg=audit(1700000000.100:42): arch=c000003e syscall=59 success=yes exit=0 pid=1234 comm="ls"
type=CWD msg=audit(1700000000.100:42): cwd="/root"
type=PATH msg=audit(1700000000.100:42): item=0 name="/bin/ls" nametype=NORMAL
type=EOE msg=audit(1700000000.100:42):
type=USER_LOGIN msg=audit(1700000001.000:43): pid=99 uid=0 res=success
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	dir := t.TempDir()
	replay := filepath.Join(dir, "audit.log")
	if err := os.WriteFile(replay, []byte(capture), 0o600); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	cfg.Source.Kind = config.SourceReplay
	cfg.Source.ReplayPath = replay
	cfg.Source.Timing = "immediate"
	cfg.Sink.Kinds = []string{config.SinkFile}
	cfg.Sink.FilePath = filepath.Join(dir, "out", "events.jsonl")
	cfg.Metrics.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestBuildSource_Replay(t *testing.T) {
	cfg := testConfig(t)
	src, err := buildSource(cfg)
	if err != nil {
		t.Fatalf("buildSource: %v", err)
	}
	if src.Name() == "" {
		t.Error("source should be named")
	}
}

func TestBuildSource_MissingReplay(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.ReplayPath = filepath.Join(t.TempDir(), "missing.log")
	if _, err := buildSource(cfg); err == nil {
		t.Error("expected error for missing capture")
	}
}

func TestOpenWAL_Disabled(t *testing.T) {
	cfg := testConfig(t)
	w, err := openWAL(cfg)
	if err != nil || w != nil {
		t.Errorf("openWAL() = %v, %v; want nil, nil", w, err)
	}
	closeWAL(nil)
}

func TestBuildDelivery_UnknownKind(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Kinds = []string{"kafka"}
	if _, err := buildDelivery(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown sink kind")
	}
}

func TestReplayToFileSink(t *testing.T) {
	cfg := testConfig(t)

	src, err := buildSource(cfg)
	if err != nil {
		t.Fatalf("buildSource: %v", err)
	}
	d, err := buildDelivery(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("buildDelivery: %v", err)
	}

	pl := pipeline.New(cfg.PipelineSettings(), src,
		parser.New(cfg.ParserOptions()),
		correlator.New(cfg.CorrelatorSettings()),
		d.sink)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pl.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	d.Close()

	data, err := os.ReadFile(cfg.Sink.FilePath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d events, want 2:\n%s", len(lines), data)
	}
	if !bytes.Contains(lines[0], []byte(string(audit.ReasonTerminator))) {
		t.Errorf("first event should close on EOE: %s", lines[0])
	}
}
