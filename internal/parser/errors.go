// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package parser

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind uint8

const (
	// KindEmptyLine is an empty or whitespace-only line.
	KindEmptyLine Kind = iota + 1

	// KindMissingAuditID means no parseable msg=audit(S.M:N) token was found.
	KindMissingAuditID

	// KindMalformedKeyValue means a token could not be read as key=value.
	KindMalformedKeyValue
)

// String returns a stable name suitable for metric labels.
func (k Kind) String() string {
	switch k {
	case KindEmptyLine:
		return "empty_line"
	case KindMissingAuditID:
		return "missing_audit_id"
	case KindMalformedKeyValue:
		return "malformed_key_value"
	default:
		return "unknown"
	}
}

// Kinds lists every parse failure kind.
func Kinds() []Kind {
	return []Kind{KindEmptyLine, KindMissingAuditID, KindMalformedKeyValue}
}

// Sentinel errors for errors.Is checks.
var (
	ErrEmptyLine         = errors.New("empty line")
	ErrMissingAuditID    = errors.New("missing audit id")
	ErrMalformedKeyValue = errors.New("malformed key/value")
)

func (k Kind) sentinel() error {
	switch k {
	case KindEmptyLine:
		return ErrEmptyLine
	case KindMissingAuditID:
		return ErrMissingAuditID
	case KindMalformedKeyValue:
		return ErrMalformedKeyValue
	default:
		return nil
	}
}

// Error describes why a line could not be parsed. Every parse error is
// recoverable; callers log it and move on to the next line.
type Error struct {
	Kind Kind

	// Offset is the byte offset of the offending token. Only meaningful
	// for KindMalformedKeyValue.
	Offset int

	// Detail is a short human-readable explanation.
	Detail string

	// Line is the input that failed to parse.
	Line string
}

// Error implements error.
func (e *Error) Error() string {
	switch e.Kind {
	case KindMalformedKeyValue:
		return fmt.Sprintf("%s at offset %d: %s", e.Kind.sentinel(), e.Offset, e.Detail)
	case KindMissingAuditID:
		if e.Detail != "" {
			return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.Detail)
		}
	}
	return e.Kind.sentinel().Error()
}

// Unwrap lets errors.Is match the sentinel for the error's kind.
func (e *Error) Unwrap() error { return e.Kind.sentinel() }

// KindOf returns the parse failure kind of err, or 0 if err is not a *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
