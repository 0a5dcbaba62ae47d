// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package wal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/parser"
)

// Test helpers

func createTestConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Enabled:          true,
		Path:             filepath.Join(t.TempDir(), "wal"),
		SyncWrites:       false,
		RetryInterval:    1 * time.Second,
		MaxRetries:       3,
		RetryBackoff:     1 * time.Second,
		CompactInterval:  1 * time.Minute,
		EntryTTL:         1 * time.Hour,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 16 * 1024 * 1024,
		NumCompactors:    2,
		GCRatio:          0.5,
	}
}

// createFastTestConfig is not valid for Open but works with OpenForTesting.
func createFastTestConfig(t *testing.T) Config {
	t.Helper()
	cfg := createTestConfig(t)
	cfg.RetryInterval = 50 * time.Millisecond
	cfg.RetryBackoff = time.Millisecond
	cfg.CompactInterval = 50 * time.Millisecond
	return cfg
}

func setupWAL(t *testing.T) *BadgerWAL {
	t.Helper()
	cfg := createTestConfig(t)
	w, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func setupFastWAL(t *testing.T, mutate func(*Config)) *BadgerWAL {
	t.Helper()
	cfg := createFastTestConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := OpenForTesting(&cfg)
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func createTestEvent(t *testing.T, serial int) *audit.Event {
	t.Helper()
	line := fmt.Sprintf(`type=SYSCALL msg=audit(1700000000.123:%d): arch=c000003e syscall=59 exe="/usr/bin/id"`, serial)
	rec, err := parser.ParseString(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := audit.NewEvent(rec, time.Now())
	ev.Finalize(audit.ReasonIdle)
	return ev
}

func writeTestEvents(t *testing.T, w *BadgerWAL, sinkName string, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range n {
		id, err := w.Write(context.Background(), sinkName, createTestEvent(t, i+1))
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		ids[i] = id
	}
	return ids
}

func assertPendingCount(t *testing.T, w *BadgerWAL, expected int) {
	t.Helper()
	entries, err := w.GetPending(context.Background())
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(entries) != expected {
		t.Errorf("Expected %d pending entries, got %d", expected, len(entries))
	}
}

// mockRedeliverer fails the first failUntil calls.
type mockRedeliverer struct {
	calls     atomic.Int32
	failUntil atomic.Int32

	mu        sync.Mutex
	delivered []*audit.Event
}

func (m *mockRedeliverer) Redeliver(_ context.Context, entry *Entry) error {
	m.calls.Add(1)
	if m.failUntil.Load() > 0 {
		m.failUntil.Add(-1)
		return errors.New("sink unavailable")
	}
	ev, err := entry.Event()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.delivered = append(m.delivered, ev)
	m.mu.Unlock()
	return nil
}

func TestWAL_WriteAndGetPending(t *testing.T) {
	w := setupWAL(t)
	ev := createTestEvent(t, 42)

	id, err := w.Write(context.Background(), "duckdb", ev)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if id == "" {
		t.Fatal("empty entry ID")
	}

	entries, err := w.GetPending(context.Background())
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.ID != id || got.Sink != "duckdb" || got.Attempts != 0 || got.Confirmed {
		t.Errorf("entry = %+v", got)
	}

	decoded, err := got.Event()
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if decoded.UUID != ev.UUID || decoded.ID != ev.ID || decoded.Reason != audit.ReasonIdle {
		t.Errorf("decoded event = %+v", decoded)
	}
	if decoded.Primary().Field("exe") != "/usr/bin/id" {
		t.Errorf("exe = %q", decoded.Primary().Field("exe"))
	}
}

func TestWAL_Write_NilEvent(t *testing.T) {
	w := setupWAL(t)
	if _, err := w.Write(context.Background(), "file", nil); !errors.Is(err, ErrNilEvent) {
		t.Errorf("err = %v, want ErrNilEvent", err)
	}
}

func TestWAL_Write_Concurrent(t *testing.T) {
	w := setupWAL(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := w.Write(context.Background(), "file", createTestEvent(t, i)); err != nil {
				t.Errorf("Write failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assertPendingCount(t, w, 20)
}

func TestWAL_Confirm(t *testing.T) {
	w := setupWAL(t)
	ids := writeTestEvents(t, w, "file", 3)

	if err := w.Confirm(context.Background(), ids[1]); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	assertPendingCount(t, w, 2)

	stats := w.Stats()
	if stats.ConfirmedCount != 1 || stats.PendingCount != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalWrites != 3 || stats.TotalConfirms != 1 {
		t.Errorf("totals = %+v", stats)
	}
}

func TestWAL_Confirm_Errors(t *testing.T) {
	w := setupWAL(t)
	ctx := context.Background()

	if err := w.Confirm(ctx, ""); !errors.Is(err, ErrEmptyEntryID) {
		t.Errorf("empty id: %v", err)
	}
	if err := w.Confirm(ctx, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("missing id: %v", err)
	}
}

func TestWAL_UpdateAttempt(t *testing.T) {
	w := setupWAL(t)
	ids := writeTestEvents(t, w, "nats", 1)

	if err := w.UpdateAttempt(context.Background(), ids[0], "timeout"); err != nil {
		t.Fatalf("UpdateAttempt failed: %v", err)
	}
	entries, _ := w.GetPending(context.Background())
	if len(entries) != 1 || entries[0].Attempts != 1 || entries[0].LastError != "timeout" || entries[0].LastAttemptAt.IsZero() {
		t.Errorf("entry = %+v", entries[0])
	}

	if err := w.UpdateAttempt(context.Background(), "missing", "x"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("missing id: %v", err)
	}
}

func TestWAL_DeleteEntry(t *testing.T) {
	w := setupWAL(t)
	ctx := context.Background()
	ids := writeTestEvents(t, w, "file", 2)

	if err := w.DeleteEntry(ctx, ids[0]); err != nil {
		t.Fatalf("DeleteEntry pending: %v", err)
	}
	if err := w.Confirm(ctx, ids[1]); err != nil {
		t.Fatal(err)
	}
	if err := w.DeleteEntry(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteEntry confirmed: %v", err)
	}
	if err := w.DeleteEntry(ctx, ids[1]); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if s := w.Stats(); s.PendingCount != 0 || s.ConfirmedCount != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestWAL_Close(t *testing.T) {
	cfg := createTestConfig(t)
	w, err := Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := w.Write(context.Background(), "file", createTestEvent(t, 1)); !errors.Is(err, ErrWALClosed) {
		t.Errorf("Write after close: %v", err)
	}
	if (w.Stats() != Stats{}) {
		t.Error("Stats after close not zero")
	}
}

func TestWAL_Recovery(t *testing.T) {
	cfg := createTestConfig(t)
	ctx := context.Background()

	w1, err := Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	writeTestEvents(t, w1, "duckdb", 5)
	if err := w1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	w2, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Failed to reopen WAL: %v", err)
	}
	defer w2.Close()

	r := &mockRedeliverer{}
	result, err := w2.RecoverPending(ctx, r)
	if err != nil {
		t.Fatalf("RecoverPending failed: %v", err)
	}
	if result.TotalPending != 5 || result.Recovered != 5 {
		t.Errorf("result = %+v", result)
	}
	if len(r.delivered) != 5 {
		t.Errorf("delivered %d events, want 5", len(r.delivered))
	}
	assertPendingCount(t, w2, 0)
}

func TestWAL_Recovery_WithFailures(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.MaxRetries = 5
	w, err := Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	writeTestEvents(t, w, "file", 5)

	r := &mockRedeliverer{}
	r.failUntil.Store(2)

	result, err := w.RecoverPending(context.Background(), r)
	if err != nil {
		t.Fatalf("RecoverPending failed: %v", err)
	}
	if result.Recovered != 3 || result.Failed != 2 {
		t.Errorf("result = %+v", result)
	}
	assertPendingCount(t, w, 2)
}

func TestWAL_Recovery_NilRedeliverer(t *testing.T) {
	w := setupWAL(t)
	if _, err := w.RecoverPending(context.Background(), nil); err == nil {
		t.Error("nil redeliverer accepted")
	}
}

func TestRetryLoop_Redelivers(t *testing.T) {
	w := setupFastWAL(t, nil)
	writeTestEvents(t, w, "file", 3)

	r := &mockRedeliverer{}
	loop := NewRetryLoop(w, r)
	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer loop.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && r.calls.Load() < 3 {
		time.Sleep(20 * time.Millisecond)
	}
	loop.Stop()

	if r.calls.Load() != 3 {
		t.Errorf("redelivered %d, want 3", r.calls.Load())
	}
	assertPendingCount(t, w, 0)
}

func TestRetryLoop_MaxRetries(t *testing.T) {
	w := setupFastWAL(t, func(c *Config) { c.MaxRetries = 2 })
	ctx := context.Background()
	ids := writeTestEvents(t, w, "file", 1)
	for range 2 {
		if err := w.UpdateAttempt(ctx, ids[0], "boom"); err != nil {
			t.Fatal(err)
		}
	}

	r := &mockRedeliverer{}
	r.failUntil.Store(1000)
	result := NewRetryLoop(w, r).RunOnce(ctx)

	if result.MaxRetried != 1 {
		t.Errorf("result = %+v", result)
	}
	if r.calls.Load() != 0 {
		t.Errorf("redelivered an exhausted entry")
	}
	assertPendingCount(t, w, 0)
}

func TestRetryLoop_HonoursBackoff(t *testing.T) {
	w := setupFastWAL(t, func(c *Config) { c.RetryBackoff = time.Hour })
	ctx := context.Background()
	ids := writeTestEvents(t, w, "file", 1)
	if err := w.UpdateAttempt(ctx, ids[0], "boom"); err != nil {
		t.Fatal(err)
	}

	r := &mockRedeliverer{}
	result := NewRetryLoop(w, r).RunOnce(ctx)
	if result.Skipped != 1 || r.calls.Load() != 0 {
		t.Errorf("entry in backoff was retried: %+v", result)
	}

	// Startup recovery ignores backoff.
	rec, err := w.RecoverPending(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Recovered != 1 {
		t.Errorf("recovery = %+v", rec)
	}
}

func TestRetryLoop_StartStop(t *testing.T) {
	w := setupFastWAL(t, nil)
	loop := NewRetryLoop(w, &mockRedeliverer{})

	if loop.IsRunning() {
		t.Fatal("running before Start")
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := loop.Start(context.Background()); err != nil {
		t.Errorf("second Start: %v", err)
	}
	if !loop.IsRunning() {
		t.Error("not running after Start")
	}
	loop.Stop()
	loop.Stop()
	if loop.IsRunning() {
		t.Error("running after Stop")
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{5, 32 * time.Second},
		{10, maxBackoff},
		{100, maxBackoff},
	}
	for _, tt := range tests {
		if got := calculateBackoff(time.Second, tt.attempts); got != tt.want {
			t.Errorf("calculateBackoff(1s, %d) = %s, want %s", tt.attempts, got, tt.want)
		}
	}
}

func TestCompactor_RunNow(t *testing.T) {
	w := setupFastWAL(t, nil)
	ctx := context.Background()
	ids := writeTestEvents(t, w, "file", 5)
	for _, id := range ids[:4] {
		if err := w.Confirm(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	c := NewCompactor(w)
	c.RunNow()

	stats := w.Stats()
	if stats.ConfirmedCount != 0 || stats.PendingCount != 1 {
		t.Errorf("stats after compaction = %+v", stats)
	}
	if cs := c.GetStats(); cs.LastEntriesCount != 4 || cs.LastRun.IsZero() {
		t.Errorf("compactor stats = %+v", cs)
	}
	if stats.LastCompaction.IsZero() {
		t.Error("LastCompaction not recorded")
	}
}

func TestCompactor_Loop(t *testing.T) {
	w := setupFastWAL(t, nil)
	ctx := context.Background()
	for _, id := range writeTestEvents(t, w, "file", 3) {
		if err := w.Confirm(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	c := NewCompactor(w)
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.IsRunning() {
		t.Error("not running after Start")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && w.Stats().ConfirmedCount != 0 {
		time.Sleep(20 * time.Millisecond)
	}
	c.Stop()

	if n := w.Stats().ConfirmedCount; n != 0 {
		t.Errorf("confirmed after compaction = %d", n)
	}
	if c.IsRunning() {
		t.Error("running after Stop")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(t *testing.T) Config { return createTestConfig(t) }

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Path = "" }, ""},
		{"empty path", func(c *Config) { c.Path = "" }, "Path"},
		{"retry interval", func(c *Config) { c.RetryInterval = time.Millisecond }, "RetryInterval"},
		{"max retries", func(c *Config) { c.MaxRetries = 0 }, "MaxRetries"},
		{"backoff", func(c *Config) { c.RetryBackoff = 0 }, "RetryBackoff"},
		{"compact interval", func(c *Config) { c.CompactInterval = time.Second }, "CompactInterval"},
		{"ttl", func(c *Config) { c.EntryTTL = time.Minute }, "EntryTTL"},
		{"compactors", func(c *Config) { c.NumCompactors = 1 }, "NumCompactors"},
		{"gc ratio", func(c *Config) { c.GCRatio = 1 }, "GCRatio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("err = %v, want ConfigError on %s", err, tt.field)
			}
		})
	}
}

func TestDefaultConfigValidWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig invalid: %v", err)
	}
}
