// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/auditstream/internal/audit"
)

// Multi writes every event to each of its sinks in order.
//
// A failing sink does not stop delivery to the others; the joined error is
// returned. Wrap members in Resilient so one slow destination spools to the
// WAL instead of failing the whole fan-out.
type Multi struct {
	sinks []Sink
}

// NewMulti fans out to sinks. A single sink is returned unwrapped.
func NewMulti(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &Multi{sinks: sinks}
}

// Name implements Sink.
func (m *Multi) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi[" + strings.Join(names, ",") + "]"
}

// Write implements Sink.
func (m *Multi) Write(ctx context.Context, ev *audit.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Sinks returns the member sinks.
func (m *Multi) Sinks() []Sink { return m.sinks }
