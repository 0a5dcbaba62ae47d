// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package audit

import (
	"time"

	"github.com/google/uuid"
)

// Reason records why an event was finalized.
type Reason string

const (
	// ReasonTerminator means a terminator record closed the group.
	ReasonTerminator Reason = "terminator"

	// ReasonStandalone means the record type is a complete event by itself.
	ReasonStandalone Reason = "standalone"

	// ReasonMaxRecords means the group hit the per-event record bound.
	ReasonMaxRecords Reason = "max_records"

	// ReasonIdle means the group saw no new records within the idle timeout.
	ReasonIdle Reason = "idle_timeout"

	// ReasonEvicted means the group was the oldest in flight when the
	// group limit was reached.
	ReasonEvicted Reason = "evicted"

	// ReasonFlushed means the group was still open at end of stream.
	ReasonFlushed Reason = "flushed"

	// ReasonLate means the record arrived after its group was finalized
	// and was emitted as a separate single-record event.
	ReasonLate Reason = "late"
)

// Complete reports whether the reason represents a cleanly closed group.
func (r Reason) Complete() bool {
	switch r {
	case ReasonTerminator, ReasonStandalone, ReasonMaxRecords:
		return true
	default:
		return false
	}
}

// Reasons lists every finalization reason.
func Reasons() []Reason {
	return []Reason{
		ReasonTerminator, ReasonStandalone, ReasonMaxRecords,
		ReasonIdle, ReasonEvicted, ReasonFlushed, ReasonLate,
	}
}

// Event is the set of records sharing one audit ID, in arrival order.
//
// The correlator owns an Event until it is finalized. After that it is
// handed downstream and never mutated again.
type Event struct {
	UUID      string    `json:"uuid"`
	ID        ID        `json:"audit_id"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Records   []*Record `json:"records"`
	Complete  bool      `json:"complete"`
	Reason    Reason    `json:"reason"`
}

// NewEvent starts an event seeded with its first record.
func NewEvent(rec *Record, now time.Time) *Event {
	return &Event{
		UUID:      uuid.New().String(),
		ID:        rec.ID,
		FirstSeen: now,
		LastSeen:  now,
		Records:   []*Record{rec},
	}
}

// Append adds a record observed at now.
func (e *Event) Append(rec *Record, now time.Time) {
	e.Records = append(e.Records, rec)
	e.LastSeen = now
}

// Finalize closes the event with the given reason.
func (e *Event) Finalize(reason Reason) {
	e.Reason = reason
	e.Complete = reason.Complete()
}

// Finalized reports whether Finalize has been called.
func (e *Event) Finalized() bool { return e.Reason != "" }

// Len returns the number of records in the event.
func (e *Event) Len() int { return len(e.Records) }

// Timestamp returns the kernel timestamp shared by the event's records.
func (e *Event) Timestamp() time.Time { return e.ID.Time() }

// Primary returns the first record, which for syscall events is the
// SYSCALL record itself.
func (e *Event) Primary() *Record {
	if len(e.Records) == 0 {
		return nil
	}
	return e.Records[0]
}

// Types returns the record type names in arrival order.
func (e *Event) Types() []string {
	out := make([]string, len(e.Records))
	for i, r := range e.Records {
		out[i] = r.Type.String()
	}
	return out
}
