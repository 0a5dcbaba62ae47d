// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"sync"

	"github.com/tomtom215/auditstream/internal/audit"
)

// MemorySink collects events in memory. It backs tests and the dry-run mode.
type MemorySink struct {
	name string

	mu     sync.Mutex
	events []*audit.Event
	closed bool

	// notify receives a value after each write when non-nil.
	notify chan struct{}
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink(name string) *MemorySink {
	if name == "" {
		name = "memory"
	}
	return &MemorySink{name: name, notify: make(chan struct{}, 1)}
}

// Name implements Sink.
func (s *MemorySink) Name() string { return s.name }

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, ev *audit.Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.events = append(s.events, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Events returns a copy of the events written so far.
func (s *MemorySink) Events() []*audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of events written.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Written is signalled after writes. Signals coalesce.
func (s *MemorySink) Written() <-chan struct{} { return s.notify }
