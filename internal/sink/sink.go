// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package sink

import (
	"context"
	"errors"

	"github.com/tomtom215/auditstream/internal/audit"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("sink is closed")

// ErrNilEvent is returned when Write is handed a nil event.
var ErrNilEvent = errors.New("event cannot be nil")

// Sink consumes finalized events. Write may block; that is how backpressure
// reaches the correlator. Implementations must be safe for use by one
// writer goroutine; Close may be called concurrently with Write.
type Sink interface {
	// Name identifies the sink in logs, metrics, and WAL entries.
	Name() string
	Write(ctx context.Context, ev *audit.Event) error
	Close() error
}
