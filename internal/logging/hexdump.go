// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package logging

import (
	"encoding/hex"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// maxDumpBytes caps how much of an opaque payload is rendered into a log line.
const maxDumpBytes = 512

// Payload attaches raw bytes to a log event. Valid UTF-8 is logged as a
// string; anything else is rendered as a hex dump under "payload_hex".
func Payload(e *zerolog.Event, raw []byte) *zerolog.Event {
	if utf8.Valid(raw) {
		return e.Str("payload", string(raw))
	}
	truncated := false
	if len(raw) > maxDumpBytes {
		raw = raw[:maxDumpBytes]
		truncated = true
	}
	return e.Str("payload_hex", hex.Dump(raw)).Bool("payload_truncated", truncated)
}
