// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// capture has lines at relative offsets 0s, 2s and 5s.
const capture = `type=SYSCALL msg=audit(1700000000.000:1): arch=c000003e syscall=59
type=EOE msg=audit(1700000002.000:1):

type=USER_LOGIN msg=audit(1700000005.000:2): pid=1 uid=0 msg='op=login res=success'
`

type arrival struct {
	line string
	at   time.Duration
}

// collect reads every line until the source finishes or the deadline hits.
func collect(t *testing.T, src Source, deadline time.Duration) []arrival {
	t.Helper()
	start := time.Now()
	timeout := time.After(deadline)
	var got []arrival
	for {
		select {
		case line, ok := <-src.C():
			if !ok {
				return got
			}
			got = append(got, arrival{line: string(line), at: time.Since(start)})
		case <-timeout:
			t.Fatalf("replay did not finish within %s (got %d lines)", deadline, len(got))
		}
	}
}

func newTestReplay(t *testing.T, cfg ReplayConfig) *Replay {
	t.Helper()
	r, err := NewReplayFromReader("test", strings.NewReader(capture), cfg)
	if err != nil {
		t.Fatalf("NewReplayFromReader: %v", err)
	}
	return r
}

func TestLoadCapture(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingImmediate})

	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (blank lines skipped)", r.Len())
	}
	want := []time.Duration{0, 2 * time.Second, 5 * time.Second}
	for i, w := range want {
		if r.lines[i].offset != w {
			t.Errorf("line %d offset = %s, want %s", i, r.lines[i].offset, w)
		}
	}
	if r.Span() != 5*time.Second {
		t.Errorf("Span = %s, want 5s", r.Span())
	}
}

func TestLoadCaptureUntimestampedLines(t *testing.T) {
	in := "garbage first\n" +
		"type=SYSCALL msg=audit(100.500:1): a=1\n" +
		"not an audit line\n" +
		"type=EOE msg=audit(101.250:1):\n"
	r, err := NewReplayFromReader("test", strings.NewReader(in), ReplayConfig{Timing: TimingImmediate})
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{0, 0, 0, 750 * time.Millisecond}
	if r.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", r.Len(), len(want))
	}
	for i, w := range want {
		if r.lines[i].offset != w {
			t.Errorf("line %d offset = %s, want %s", i, r.lines[i].offset, w)
		}
	}
}

func TestReplayImmediate(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingImmediate})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	got := collect(t, r, 2*time.Second)
	if len(got) != 3 {
		t.Fatalf("got %d lines, want 3", len(got))
	}
	if last := got[len(got)-1].at; last > 200*time.Millisecond {
		t.Errorf("immediate replay took %s", last)
	}
	if !strings.HasPrefix(got[2].line, "type=USER_LOGIN") {
		t.Errorf("order broken: %q", got[2].line)
	}
	<-r.Done()
	if err := r.Err(); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
}

func checkGaps(t *testing.T, got []arrival, want []time.Duration, tolerance time.Duration) {
	t.Helper()
	if len(got) != len(want)+1 {
		t.Fatalf("got %d lines, want %d", len(got), len(want)+1)
	}
	for i, w := range want {
		gap := got[i+1].at - got[i].at
		if gap < w-tolerance || gap > w+tolerance {
			t.Errorf("gap %d = %s, want %s ± %s", i, gap, w, tolerance)
		}
	}
}

func TestReplayOriginalTimingScaled(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingOriginal, Speed: 10})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	got := collect(t, r, 5*time.Second)
	checkGaps(t, got, []time.Duration{200 * time.Millisecond, 300 * time.Millisecond}, 50*time.Millisecond)
}

func TestReplayOriginalTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("full-speed replay takes 5s")
	}
	r := newTestReplay(t, ReplayConfig{Timing: TimingOriginal})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	got := collect(t, r, 10*time.Second)
	checkGaps(t, got, []time.Duration{2 * time.Second, 3 * time.Second}, 50*time.Millisecond)
}

func TestReplayInterval(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingInterval, Interval: 100 * time.Millisecond})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	got := collect(t, r, 5*time.Second)
	if len(got) > 0 && got[0].at > 50*time.Millisecond {
		t.Errorf("first line delayed by %s", got[0].at)
	}
	checkGaps(t, got, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, 50*time.Millisecond)
}

func TestReplayStopMidDelay(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingOriginal})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The first line is due immediately, the second 2s later.
	select {
	case <-r.C():
	case <-time.After(time.Second):
		t.Fatal("first line not delivered")
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stop did not interrupt the replay delay")
	}

	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	if _, ok := r.ReadMessage(); ok {
		t.Error("line produced after Stop")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err = %v, want nil after Stop", err)
	}
}

func TestReplayContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newTestReplay(t, ReplayConfig{Timing: TimingOriginal})
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after context cancel")
	}
}

func TestReplayStartTwice(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingImmediate})
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestReplayStopBeforeStart(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingImmediate})
	r.Stop()

	select {
	case <-r.Done():
	default:
		t.Fatal("Done not closed")
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestReadMessageNonBlocking(t *testing.T) {
	r := newTestReplay(t, ReplayConfig{Timing: TimingOriginal})

	// Not started: nothing ready, and the call must not block.
	if _, ok := r.ReadMessage(); ok {
		t.Fatal("ReadMessage returned a line before Start")
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if line, ok := r.ReadMessage(); ok {
			if !strings.HasPrefix(string(line), "type=SYSCALL") {
				t.Errorf("first line = %q", line)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("first line never became readable")
}

func TestNewReplayErrors(t *testing.T) {
	if _, err := NewReplay(filepath.Join(t.TempDir(), "missing.log"), DefaultReplayConfig()); err == nil {
		t.Error("missing capture accepted")
	}
	if _, err := NewReplayFromReader("x", strings.NewReader(capture), ReplayConfig{Timing: "warp"}); err == nil {
		t.Error("unknown timing accepted")
	}
	if _, err := NewReplayFromReader("x", strings.NewReader(capture), ReplayConfig{Timing: TimingInterval}); err == nil {
		t.Error("interval timing without interval accepted")
	}
}

func TestNewReplayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := os.WriteFile(path, []byte(capture), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := NewReplay(path, DefaultReplayConfig())
	if err != nil {
		t.Fatalf("NewReplay: %v", err)
	}
	if r.Name() != "replay:audit.log" {
		t.Errorf("Name = %q", r.Name())
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

func TestParseTiming(t *testing.T) {
	tests := []struct {
		in      string
		want    Timing
		wantErr bool
	}{
		{"immediate", TimingImmediate, false},
		{"Original", TimingOriginal, false},
		{" interval ", TimingInterval, false},
		{"", TimingOriginal, false},
		{"fast", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTiming(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTiming(%q) = %q, %v", tt.in, got, err)
		}
	}
}
