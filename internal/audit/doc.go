// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package audit defines the data model shared by every pipeline stage.
//
// A Record is one parsed audit line: a RecordType resolved from a static
// lookup table, the kernel-assigned ID from the msg=audit(S.M:N) token, and
// an insertion-ordered field map holding every other key/value pair
// verbatim. An Event is the group of Records sharing one ID, closed either
// by a terminator, a size bound, or idle expiry.
//
// Record types are not generated. typeTable is a plain list of
// (code, name) pairs from linux/audit.h and libaudit; extending it is a
// one-line change. Names that are not in the table still resolve to a
// RecordType whose Known method reports false.
package audit
