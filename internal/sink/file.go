// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/auditstream/internal/audit"
)

// StdoutPath selects standard output for a FileSink.
const StdoutPath = "-"

// FileSink writes one JSON document per event, newline delimited.
type FileSink struct {
	name string
	mu   sync.Mutex
	w    *bufio.Writer
	enc  *json.Encoder
	c    io.Closer
	// closed guards against writes to a released file.
	closed bool
}

// NewFileSink opens path for appending, creating parent directories. The
// path "-" writes to standard output.
func NewFileSink(path string) (*FileSink, error) {
	if path == StdoutPath {
		return NewWriterSink("file:stdout", os.Stdout), nil
	}
	if path == "" {
		return nil, fmt.Errorf("file sink path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open sink file %s: %w", path, err)
	}
	s := NewWriterSink("file:"+filepath.Base(path), f)
	s.c = f
	return s, nil
}

// NewWriterSink writes JSON lines to w. Close flushes but does not close w.
func NewWriterSink(name string, w io.Writer) *FileSink {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &FileSink{name: name, w: bw, enc: enc}
}

// Name implements Sink.
func (s *FileSink) Name() string { return s.name }

// Write encodes ev and flushes it, so each event is visible to readers as
// soon as Write returns.
func (s *FileSink) Write(_ context.Context, ev *audit.Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.enc.Encode(ev); err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush event %s: %w", ev.ID, err)
	}
	return nil
}

// Close flushes buffered output and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.w.Flush()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
