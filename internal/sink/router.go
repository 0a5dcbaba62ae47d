// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"fmt"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/wal"
)

// Deliverer makes a single delivery attempt without spooling.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, ev *audit.Event) error
}

// Router redelivers WAL entries to the sink named in each entry.
type Router struct {
	sinks map[string]Deliverer
}

// NewRouter indexes sinks by name.
func NewRouter(sinks ...Deliverer) *Router {
	r := &Router{sinks: make(map[string]Deliverer, len(sinks))}
	for _, s := range sinks {
		r.sinks[s.Name()] = s
	}
	return r
}

// Redeliver implements wal.Redeliverer. Entries for a sink that is no longer
// configured fail, so they are retried until a restart restores the sink or
// they run out of attempts.
func (r *Router) Redeliver(ctx context.Context, entry *wal.Entry) error {
	s, ok := r.sinks[entry.Sink]
	if !ok {
		return fmt.Errorf("no sink named %q configured", entry.Sink)
	}
	ev, err := entry.Event()
	if err != nil {
		return fmt.Errorf("decode spooled event: %w", err)
	}
	return s.Deliver(ctx, ev)
}

var _ wal.Redeliverer = (*Router)(nil)
