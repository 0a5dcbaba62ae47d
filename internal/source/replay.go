// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/metrics"
)

// Timing selects how a replay schedules its lines.
type Timing string

const (
	// TimingImmediate delivers every line without delay.
	TimingImmediate Timing = "immediate"

	// TimingOriginal reproduces the gaps between the captured timestamps,
	// scaled by ReplayConfig.Speed.
	TimingOriginal Timing = "original"

	// TimingInterval waits ReplayConfig.Interval between consecutive lines.
	TimingInterval Timing = "interval"
)

// ParseTiming converts a config string into a Timing.
func ParseTiming(s string) (Timing, error) {
	switch t := Timing(strings.ToLower(strings.TrimSpace(s))); t {
	case TimingImmediate, TimingOriginal, TimingInterval:
		return t, nil
	case "":
		return TimingOriginal, nil
	default:
		return "", fmt.Errorf("unknown replay timing %q (want immediate, original or interval)", s)
	}
}

// maxLineSize bounds a single captured line. EXECVE records with long
// argument lists are the usual worst case.
const maxLineSize = 1 << 20

// ReplayConfig configures a Replay.
type ReplayConfig struct {
	Timing   Timing
	Interval time.Duration

	// Speed scales original timing: 2 replays twice as fast.
	// Values <= 0 mean 1.
	Speed float64

	QueueSize int
}

// DefaultReplayConfig returns original timing at 1x.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Timing:    TimingOriginal,
		Interval:  10 * time.Millisecond,
		Speed:     1,
		QueueSize: DefaultQueueSize,
	}
}

type replayLine struct {
	offset time.Duration
	data   []byte
}

// Replay plays back a captured audit log. The capture is read fully at
// construction so a missing or unreadable file fails before Start.
type Replay struct {
	*queue
	cfg   ReplayConfig
	lines []replayLine
}

// NewReplay loads the capture at path.
func NewReplay(path string, cfg ReplayConfig) (*Replay, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open replay capture: %w", err)
	}
	defer f.Close()
	return NewReplayFromReader("replay:"+filepath.Base(path), f, cfg)
}

// NewReplayFromReader loads a capture from r.
func NewReplayFromReader(name string, r io.Reader, cfg ReplayConfig) (*Replay, error) {
	if cfg.Timing == "" {
		cfg.Timing = TimingOriginal
	}
	if _, err := ParseTiming(string(cfg.Timing)); err != nil {
		return nil, err
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.Timing == TimingInterval && cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval timing needs a positive interval, got %s", cfg.Interval)
	}

	lines, err := loadCapture(r)
	if err != nil {
		return nil, err
	}
	return &Replay{
		queue: newQueue(name, cfg.QueueSize),
		cfg:   cfg,
		lines: lines,
	}, nil
}

// loadCapture reads every non-blank line and computes its offset from the
// first timestamped line. Lines without a timestamp inherit the previous
// offset so they still reach the parser.
func loadCapture(r io.Reader) ([]replayLine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		lines []replayLine
		base  time.Time
		prev  time.Duration
	)
	for sc.Scan() {
		raw := bytes.TrimRight(sc.Bytes(), "\r")
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		if ts, ok := lineTimestamp(raw); ok {
			if base.IsZero() {
				base = ts
			}
			prev = max(ts.Sub(base), 0)
		}
		lines = append(lines, replayLine{offset: prev, data: bytes.Clone(raw)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay capture: %w", err)
	}
	return lines, nil
}

var auditMarker = []byte("msg=audit(")

// lineTimestamp extracts the kernel timestamp from msg=audit(S.M:N).
func lineTimestamp(line []byte) (time.Time, bool) {
	i := bytes.Index(line, auditMarker)
	if i < 0 {
		return time.Time{}, false
	}
	rest := line[i+len("msg="):]
	end := bytes.IndexByte(rest, ')')
	if end < 0 {
		return time.Time{}, false
	}
	id, err := audit.ParseID(string(rest[:end+1]))
	if err != nil {
		return time.Time{}, false
	}
	return id.Time(), true
}

// Len returns the number of lines in the capture.
func (r *Replay) Len() int { return len(r.lines) }

// Span returns the offset of the last line, the unscaled duration of an
// original-timing replay.
func (r *Replay) Span() time.Duration {
	if len(r.lines) == 0 {
		return 0
	}
	return r.lines[len(r.lines)-1].offset
}

// Start launches the producer. It may be called once.
func (r *Replay) Start(ctx context.Context) error {
	return r.start(ctx, r.produce)
}

func (r *Replay) produce(ctx context.Context) error {
	log := logging.Component("source").With().Str("source", r.name).Str("timing", string(r.cfg.Timing)).Logger()
	log.Info().Int("lines", len(r.lines)).Msg("replay started")

	began := time.Now()
	for i, l := range r.lines {
		if !sleep(ctx, r.delay(i, began)) || !r.emit(ctx, l.data) {
			log.Info().Int("delivered", i).Msg("replay stopped")
			return ctx.Err()
		}
		metrics.RecordSourceLine(r.name, len(l.data))
	}
	log.Info().Int("delivered", len(r.lines)).Dur("elapsed", time.Since(began)).Msg("replay finished")
	return nil
}

// delay is how long to wait before delivering line i.
func (r *Replay) delay(i int, began time.Time) time.Duration {
	switch r.cfg.Timing {
	case TimingOriginal:
		target := time.Duration(float64(r.lines[i].offset) / r.cfg.Speed)
		return target - time.Since(began)
	case TimingInterval:
		// The interval separates lines; the first one is not delayed.
		if i == 0 {
			return 0
		}
		return r.cfg.Interval
	default:
		return 0
	}
}

// sleep waits for d or until ctx is cancelled, reporting false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
