// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package audit

import "time"

// Record is one parsed audit line. The parser is the only writer; once a
// Record leaves the parser it is treated as immutable.
type Record struct {
	Type   RecordType `json:"type"`
	ID     ID         `json:"id"`
	Fields Fields     `json:"fields"`

	// Node is the originating host when the line carried a node= prefix.
	Node string `json:"node,omitempty"`

	// Raw is the original line, kept for display parity with the source log.
	Raw string `json:"raw,omitempty"`
}

// Timestamp returns the kernel timestamp embedded in the record's ID.
func (r *Record) Timestamp() time.Time { return r.ID.Time() }

// Field returns the raw value of a field, or "" when absent.
func (r *Record) Field(key string) string { return r.Fields.Value(key) }
