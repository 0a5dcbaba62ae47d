// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package parser

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/tomtom215/auditstream/internal/audit"
)

const syscallLine = `type=SYSCALL msg=audit(1364481363.243:24287): arch=c000003e syscall=2 success=no exit=-13 a0=7fffd19c5592 a1=0 ppid=2686 pid=3538 auid=500 uid=500 comm="cat" exe="/bin/cat" key="sshd_config"`

func TestParse_Syscall(t *testing.T) {
	t.Parallel()

	rec, err := ParseString(syscallLine + "\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if rec.ID != (audit.ID{Seconds: 1364481363, Millis: 243, Serial: 24287}) {
		t.Errorf("ID = %+v", rec.ID)
	}
	if !rec.Type.Is(audit.TypeSyscall) || !rec.Type.Known() {
		t.Errorf("Type = %+v, want known SYSCALL", rec.Type)
	}
	if rec.Field("comm") != "cat" || rec.Field("exe") != "/bin/cat" {
		t.Errorf("quoted values not unquoted: comm=%q exe=%q", rec.Field("comm"), rec.Field("exe"))
	}
	wantKeys := []string{"arch", "syscall", "success", "exit", "a0", "a1", "ppid", "pid", "auid", "uid", "comm", "exe", "key"}
	if !reflect.DeepEqual(rec.Fields.Keys(), wantKeys) {
		t.Errorf("Keys() = %v, want %v", rec.Fields.Keys(), wantKeys)
	}
	if _, ok := rec.Fields.Get("type"); ok {
		t.Error("type should be promoted, not stored as a field")
	}
	if rec.Raw != syscallLine {
		t.Errorf("Raw = %q", rec.Raw)
	}
}

// Any well-formed line yields the ID and table type it was built from.
func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	types := []string{"SYSCALL", "PATH", "CWD", "PROCTITLE", "USER_START", "EOE", "SOMETHING_NEW"}
	for i, typ := range types {
		for _, serial := range []uint64{0, 1, 42, 1 << 40} {
			id := audit.ID{Seconds: uint64(1600000000 + i), Millis: uint32(i * 111 % 1000), Serial: serial}
			line := fmt.Sprintf("type=%s msg=audit(%d.%03d:%d): a=1 b=\"x y\"", typ, id.Seconds, id.Millis, id.Serial)

			rec, err := ParseString(line)
			if err != nil {
				t.Fatalf("Parse(%q): %v", line, err)
			}
			if rec.ID != id {
				t.Errorf("Parse(%q).ID = %+v, want %+v", line, rec.ID, id)
			}
			if rec.Type != audit.LookupType(typ) {
				t.Errorf("Parse(%q).Type = %+v, want %+v", line, rec.Type, audit.LookupType(typ))
			}
		}
	}
}

func TestParse_Quoting(t *testing.T) {
	t.Parallel()

	rec, err := ParseString(`type=PATH msg=audit(1.000:1): key="a b c" other=1`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Fields.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 fields: %v", rec.Fields.Len(), rec.Fields.Keys())
	}
	if rec.Field("key") != "a b c" {
		t.Errorf("key = %q, want %q", rec.Field("key"), "a b c")
	}
}

func TestParse_UserRecordNestedMsg(t *testing.T) {
	t.Parallel()

	line := `type=USER_START msg=audit(1364475353.159:24270): user pid=3380 uid=0 auid=500 ses=1 msg='op=PAM:session_open acct="root" exe="/usr/sbin/sshd" hostname=? addr=192.168.1.1 terminal=ssh res=success'`
	rec, err := New(Options{AllowBareWords: true}).Parse([]byte(line))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Type.Class != audit.ClassStandalone {
		t.Errorf("USER_START class = %v, want standalone", rec.Type.Class)
	}
	want := `op=PAM:session_open acct="root" exe="/usr/sbin/sshd" hostname=? addr=192.168.1.1 terminal=ssh res=success`
	if rec.Field("msg") != want {
		t.Errorf("msg = %q, want %q", rec.Field("msg"), want)
	}
	if rec.Field(TextField) != "user" {
		t.Errorf("%s = %q, want %q", TextField, rec.Field(TextField), "user")
	}
}

func TestParse_EnrichedSeparatorAndNode(t *testing.T) {
	t.Parallel()

	line := "node=web01 type=SYSCALL msg=audit(1.500:9): uid=0 auid=1000\x1dUID=\"root\" AUID=\"alice\""
	rec, err := ParseString(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Node != "web01" {
		t.Errorf("Node = %q, want web01", rec.Node)
	}
	if rec.Field("auid") != "1000" {
		t.Errorf("auid = %q; separator not treated as whitespace", rec.Field("auid"))
	}
	if rec.Field("AUID") != "alice" {
		t.Errorf("AUID = %q", rec.Field("AUID"))
	}
}

func TestParse_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	t.Parallel()

	rec, err := ParseString(`type=EXECVE msg=audit(1.000:1): argc=2 a0="ls" argc=3`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(rec.Fields.Keys(), []string{"argc", "a0"}) || rec.Field("argc") != "3" {
		t.Errorf("fields = %v argc=%q", rec.Fields.Keys(), rec.Field("argc"))
	}
}

func TestParse_UnknownTypeStillValid(t *testing.T) {
	t.Parallel()

	rec, err := ParseString(`msg=audit(1.000:1): a=b`)
	if err != nil {
		t.Fatalf("Parse without type: %v", err)
	}
	if rec.Type.Known() {
		t.Error("missing type= should be unknown")
	}
}

func TestParse_NonUTF8(t *testing.T) {
	t.Parallel()

	raw := []byte("type=PATH msg=audit(1.000:1): name=\xff\xfe")
	rec, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.Field("name") != "\xff\xfe" {
		t.Errorf("name = %q, want raw bytes preserved", rec.Field("name"))
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		line       string
		wantKind   Kind
		wantErr    error
		wantOffset int
	}{
		{"empty", "", KindEmptyLine, ErrEmptyLine, 0},
		{"whitespace", " \t\n", KindEmptyLine, ErrEmptyLine, 0},
		{"no msg", "type=SYSCALL arch=c000003e", KindMissingAuditID, ErrMissingAuditID, 0},
		{"bad msg", "type=SYSCALL msg=audit(12:34): a=b", KindMissingAuditID, ErrMissingAuditID, 13},
		{"bare word", "type=SYSCALL msg=audit(1.000:1): oops a=b", KindMalformedKeyValue, ErrMalformedKeyValue, 33},
		{"empty key", "type=SYSCALL msg=audit(1.000:1): =b", KindMalformedKeyValue, ErrMalformedKeyValue, 33},
		{"unterminated", `type=SYSCALL msg=audit(1.000:1): comm="cat`, KindMalformedKeyValue, ErrMalformedKeyValue, 33},
		{"text after quote", `type=SYSCALL msg=audit(1.000:1): comm="cat"x`, KindMalformedKeyValue, ErrMalformedKeyValue, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseString(tt.line)
			if err == nil {
				t.Fatalf("Parse(%q) = %+v, want error", tt.line, rec)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("KindOf = %v, want %v", KindOf(err), tt.wantKind)
			}
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("error is %T, want *Error", err)
			}
			if tt.wantKind == KindMalformedKeyValue && pe.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", pe.Offset, tt.wantOffset)
			}
		})
	}
}

func TestParse_AllowBareWords(t *testing.T) {
	t.Parallel()

	line := `type=AVC msg=audit(1226270358.848:238): avc:  denied  { write } for  pid=13349 comm="cupsd" name="cupsd.conf"`
	if _, err := ParseString(line); KindOf(err) != KindMalformedKeyValue {
		t.Fatalf("strict parse should reject bare words, got %v", err)
	}

	rec, err := New(Options{AllowBareWords: true}).Parse([]byte(line))
	if err != nil {
		t.Fatalf("lenient Parse: %v", err)
	}
	if rec.Field(TextField) != "avc: denied { write } for" {
		t.Errorf("%s = %q", TextField, rec.Field(TextField))
	}
	if rec.Fields.Keys()[0] != TextField {
		t.Errorf("text field should keep the position of the first bare word: %v", rec.Fields.Keys())
	}
	if rec.Raw != "" {
		t.Error("KeepRaw=false should not retain the line")
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		if k.String() == "unknown" {
			t.Errorf("Kind %d has no name", k)
		}
	}
}
