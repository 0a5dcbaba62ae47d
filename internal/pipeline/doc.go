// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package pipeline runs the parse, correlate, and sink stages as suture
// services joined by bounded channels.
//
// End of stream cascades by channel close: when the source finishes (or
// Drain stops it) the parse stage closes the record channel, the
// correlator flushes its open groups and closes the event channel, and
// the sink stage closes Done after the last write. Each stage then
// returns suture.ErrDoNotRestart.
package pipeline
