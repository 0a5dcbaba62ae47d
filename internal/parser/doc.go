// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package parser turns raw kernel audit lines into audit.Records.
//
// A line looks like:
//
//	type=SYSCALL msg=audit(1364481363.243:24287): arch=c000003e syscall=2 comm="cat" key=(null)
//
// The tokenizer splits on spaces, tabs and the 0x1d group separator used by
// auditd's enriched format, honoring double and single quotes. The first
// msg=audit(S.M:N) token supplies the record ID and is mandatory; the first
// type= token is resolved through audit.LookupType. Every other pair is
// stored verbatim in insertion order, including nested msg='...' payloads of
// user-space records.
//
// Errors are always *Error values with a Kind usable as a metric label.
// None of them are fatal: the caller reports the line and moves on.
package parser
