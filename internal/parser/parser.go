// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package parser

import (
	"bytes"
	"strings"

	"github.com/tomtom215/auditstream/internal/audit"
)

// TextField holds bare words (tokens without '=') when Options.AllowBareWords
// is set, e.g. the "avc:  denied  { read } for" prefix of AVC records.
const TextField = "_text"

// groupSeparator splits raw fields from interpreted fields in auditd's
// "enriched" log format.
const groupSeparator = 0x1d

// Options tune parser behavior.
type Options struct {
	// AllowBareWords collects tokens without '=' into TextField instead of
	// rejecting the line as malformed.
	AllowBareWords bool

	// KeepRaw stores the input line on the Record.
	KeepRaw bool
}

// DefaultOptions returns strict parsing with raw lines retained.
func DefaultOptions() Options {
	return Options{KeepRaw: true}
}

// Parser converts raw audit lines into Records. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	opts Options
}

// New creates a parser with the given options.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

var defaultParser = New(DefaultOptions())

// Parse parses one line using DefaultOptions.
func Parse(raw []byte) (*audit.Record, error) {
	return defaultParser.Parse(raw)
}

// ParseString is Parse for string input.
func ParseString(line string) (*audit.Record, error) {
	return defaultParser.Parse([]byte(line))
}

// Parse converts one raw line into a Record. Any error returned is a *Error.
func (p *Parser) Parse(raw []byte) (*audit.Record, error) {
	line := bytes.TrimRight(raw, "\r\n")
	if len(bytes.Trim(line, " \t\x1d")) == 0 {
		return nil, &Error{Kind: KindEmptyLine, Line: string(raw)}
	}

	rec := &audit.Record{Fields: audit.NewFields(16)}
	var (
		haveType bool
		haveID   bool
		text     []string
	)

	err := tokenize(line, func(offset int, key, value []byte, bare bool) *Error {
		if bare {
			if !p.opts.AllowBareWords {
				return &Error{Kind: KindMalformedKeyValue, Offset: offset, Detail: "token has no '='"}
			}
			if text == nil {
				rec.Fields.Set(TextField, "")
			}
			text = append(text, string(value))
			return nil
		}

		k := string(key)
		switch {
		case k == "type" && !haveType:
			rec.Type = audit.LookupType(string(value))
			haveType = true
		case k == "msg" && !haveID && bytes.HasPrefix(value, []byte("audit(")):
			id, err := audit.ParseID(string(value))
			if err != nil {
				return &Error{Kind: KindMissingAuditID, Offset: offset, Detail: err.Error()}
			}
			rec.ID = id
			haveID = true
		case k == "node" && !haveID && !haveType && rec.Node == "":
			rec.Node = string(value)
		default:
			rec.Fields.Set(k, string(value))
		}
		return nil
	})
	if err != nil {
		err.Line = string(line)
		return nil, err
	}
	if !haveID {
		return nil, &Error{Kind: KindMissingAuditID, Line: string(line)}
	}
	if text != nil {
		rec.Fields.Set(TextField, strings.Join(text, " "))
	}
	if p.opts.KeepRaw {
		rec.Raw = string(line)
	}
	return rec, nil
}

func isSeparator(b byte) bool {
	return b == ' ' || b == '\t' || b == groupSeparator
}

func isQuote(b byte) bool {
	return b == '"' || b == '\''
}

// tokenize walks line and calls emit for each token. Values may be wrapped
// in double or single quotes, in which case they may contain separators and
// the other quote character; the quotes are not part of the value. Bare
// tokens (no '=') are reported with bare set and the token in value.
func tokenize(line []byte, emit func(offset int, key, value []byte, bare bool) *Error) *Error {
	n := len(line)
	i := 0
	for {
		for i < n && isSeparator(line[i]) {
			i++
		}
		if i >= n {
			return nil
		}

		start := i
		for i < n && line[i] != '=' && !isSeparator(line[i]) {
			if isQuote(line[i]) {
				return &Error{Kind: KindMalformedKeyValue, Offset: start, Detail: "quote in key"}
			}
			i++
		}
		if i >= n || isSeparator(line[i]) {
			if err := emit(start, nil, line[start:i], true); err != nil {
				return err
			}
			continue
		}

		key := line[start:i]
		if len(key) == 0 {
			return &Error{Kind: KindMalformedKeyValue, Offset: start, Detail: "empty key"}
		}
		i++ // '='

		var value []byte
		if i < n && isQuote(line[i]) {
			q := line[i]
			end := bytes.IndexByte(line[i+1:], q)
			if end < 0 {
				return &Error{Kind: KindMalformedKeyValue, Offset: start, Detail: "unterminated quote"}
			}
			value = line[i+1 : i+1+end]
			i += end + 2
			if i < n && !isSeparator(line[i]) {
				return &Error{Kind: KindMalformedKeyValue, Offset: start, Detail: "text after closing quote"}
			}
		} else {
			vs := i
			for i < n && !isSeparator(line[i]) {
				i++
			}
			value = line[vs:i]
		}

		if err := emit(start, key, value, false); err != nil {
			return err
		}
	}
}
