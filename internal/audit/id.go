// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package audit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidID is returned when an audit(...) token cannot be parsed.
var ErrInvalidID = errors.New("invalid audit id")

// ID identifies one audited kernel action. Every record the kernel emits for
// that action carries the same ID. IDs are comparable and used as map keys.
type ID struct {
	Seconds uint64
	Millis  uint32
	Serial  uint64
}

// String renders the ID as "seconds.millis:serial".
func (id ID) String() string {
	return fmt.Sprintf("%d.%03d:%d", id.Seconds, id.Millis, id.Serial)
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// Time returns the wall-clock time embedded in the ID.
func (id ID) Time() time.Time {
	return time.Unix(int64(id.Seconds), int64(id.Millis)*int64(time.Millisecond)).UTC()
}

// Less orders IDs by time and then serial.
func (id ID) Less(other ID) bool {
	if id.Seconds != other.Seconds {
		return id.Seconds < other.Seconds
	}
	if id.Millis != other.Millis {
		return id.Millis < other.Millis
	}
	return id.Serial < other.Serial
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := parseIDBody(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID parses the value of a msg= token, e.g. "audit(1364481363.243:24287):".
// The trailing colon is optional.
func ParseID(token string) (ID, error) {
	body, ok := strings.CutPrefix(token, "audit(")
	if !ok {
		return ID{}, fmt.Errorf("%w: missing audit( prefix in %q", ErrInvalidID, token)
	}
	body = strings.TrimSuffix(body, ":")
	body, ok = strings.CutSuffix(body, ")")
	if !ok {
		return ID{}, fmt.Errorf("%w: missing closing paren in %q", ErrInvalidID, token)
	}
	return parseIDBody(body)
}

// parseIDBody parses "seconds.millis:serial".
func parseIDBody(body string) (ID, error) {
	stamp, serial, ok := strings.Cut(body, ":")
	if !ok {
		return ID{}, fmt.Errorf("%w: missing serial in %q", ErrInvalidID, body)
	}
	secs, millis, ok := strings.Cut(stamp, ".")
	if !ok {
		return ID{}, fmt.Errorf("%w: missing millis in %q", ErrInvalidID, body)
	}

	s, err := strconv.ParseUint(secs, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: seconds: %w", ErrInvalidID, err)
	}
	// The kernel zero-pads to three digits; other widths are taken as the
	// literal integer, so "1.5" is 5ms.
	ms, err := strconv.ParseUint(millis, 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("%w: millis: %w", ErrInvalidID, err)
	}
	n, err := strconv.ParseUint(serial, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: serial: %w", ErrInvalidID, err)
	}
	return ID{Seconds: s, Millis: uint32(ms), Serial: n}, nil
}
