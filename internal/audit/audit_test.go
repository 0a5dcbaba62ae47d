// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package audit

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestLookupType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		wantKnown bool
		wantCode  uint16
		wantClass Class
	}{
		{"SYSCALL", true, 1300, ClassMulti},
		{"PATH", true, 1302, ClassMulti},
		{"EOE", true, 1320, ClassTerminator},
		{"USER_START", true, 1105, ClassStandalone},
		{"NETFILTER_CFG", true, 1325, ClassStandalone},
		{"CONFIG_CHANGE", true, 1305, ClassStandalone},
		{"SECCOMP", true, 1326, ClassStandalone},
		{"ANOM_PROMISCUOUS", true, 1700, ClassStandalone},
		{"ANOM_ABEND", true, 1701, ClassStandalone},
		{"UNKNOWN[1750]", false, 1750, ClassStandalone},
		{"AVC", true, 1400, ClassMulti},
		{"CRYPTO_KEY_USER", true, 2404, ClassStandalone},
		{"UNKNOWN[1320]", true, 1320, ClassTerminator},
		{"UNKNOWN[1399]", false, 1399, ClassMulti},
		{"NOT_A_TYPE", false, 0, ClassMulti},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LookupType(tt.name)
			if got.Known() != tt.wantKnown {
				t.Errorf("Known() = %v, want %v", got.Known(), tt.wantKnown)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", got.Code, tt.wantCode)
			}
			if got.Class != tt.wantClass {
				t.Errorf("Class = %v, want %v", got.Class, tt.wantClass)
			}
		})
	}
}

func TestLookupType_UnknownKeepsRawName(t *testing.T) {
	t.Parallel()

	got := LookupType("FANCY_NEW_TYPE")
	if got.Name != "FANCY_NEW_TYPE" {
		t.Errorf("Name = %q, want raw name preserved", got.Name)
	}
	if got.String() != "FANCY_NEW_TYPE" {
		t.Errorf("String() = %q", got.String())
	}
	if (RecordType{}).String() != "UNKNOWN" {
		t.Errorf("empty type String() = %q, want UNKNOWN", RecordType{}.String())
	}
}

func TestTypeForCode(t *testing.T) {
	t.Parallel()

	if got := TypeForCode(1300); got.Name != TypeSyscall {
		t.Errorf("TypeForCode(1300) = %q, want SYSCALL", got.Name)
	}
	got := TypeForCode(1999)
	if got.Known() {
		t.Error("TypeForCode(1999) should be unknown")
	}
	if got.Name != "UNKNOWN[1999]" {
		t.Errorf("TypeForCode(1999).Name = %q, want UNKNOWN[1999]", got.Name)
	}
	if LookupType(got.Name).Code != 1999 {
		t.Error("UNKNOWN[n] name should resolve back to its code")
	}
}

func TestTypeTableHasNoDuplicates(t *testing.T) {
	t.Parallel()

	if KnownTypes() != len(typeTable) {
		t.Errorf("KnownTypes() = %d, table has %d entries; duplicate names?", KnownTypes(), len(typeTable))
	}
	codes := make(map[uint16]string)
	for _, e := range typeTable {
		if prev, ok := codes[e.code]; ok {
			t.Errorf("code %d used by both %s and %s", e.code, prev, e.name)
		}
		codes[e.code] = e.name
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"audit(1364481363.243:24287):", ID{1364481363, 243, 24287}, false},
		{"audit(1364481363.243:24287)", ID{1364481363, 243, 24287}, false},
		{"audit(1.005:7)", ID{1, 5, 7}, false},
		// Unpadded and wide millis keep the literal value.
		{"audit(1700000000.5:7)", ID{1700000000, 5, 7}, false},
		{"audit(1700000000.1234:7)", ID{1700000000, 1234, 7}, false},
		{"audit(1.:7)", ID{}, true},
		{"audit(1.-5:7)", ID{}, true},
		{"audit(1364481363:24287)", ID{}, true},
		{"audit(abc.243:1)", ID{}, true},
		{"audit(1.99999999999:1)", ID{}, true},
		{"audit(1.243:)", ID{}, true},
		{"audit(1.243:5", ID{}, true},
		{"1.243:5", ID{}, true},
	}

	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidID) {
				t.Errorf("ParseID(%q) error = %v, want ErrInvalidID", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseID(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestID_StringAndTime(t *testing.T) {
	t.Parallel()

	id := ID{Seconds: 1364481363, Millis: 43, Serial: 24287}
	if id.String() != "1364481363.043:24287" {
		t.Errorf("String() = %q", id.String())
	}
	want := time.Unix(1364481363, 43*int64(time.Millisecond)).UTC()
	if !id.Time().Equal(want) {
		t.Errorf("Time() = %v, want %v", id.Time(), want)
	}
	if !(ID{1, 0, 5}).Less(ID{1, 0, 6}) || (ID{2, 0, 0}).Less(ID{1, 999, 9}) {
		t.Error("Less ordering incorrect")
	}
}

func TestFields_OrderAndReplace(t *testing.T) {
	t.Parallel()

	var f Fields
	f.Set("arch", "c000003e")
	f.Set("syscall", "59")
	f.Set("success", "yes")
	f.Set("syscall", "60")

	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"arch", "syscall", "success"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, _ := f.Get("syscall"); v != "60" {
		t.Errorf("syscall = %q, want replaced value 60", v)
	}
	if _, ok := f.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
}

func TestFields_JSONPreservesOrder(t *testing.T) {
	t.Parallel()

	f := NewFields(3)
	f.Set("z", "1")
	f.Set("a", "two words")
	f.Set("m", `q"uote`)

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"z":"1","a":"two words","m":"q\"uote"}` {
		t.Errorf("Marshal = %s", data)
	}

	var back Fields
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Pairs(), f.Pairs()) {
		t.Errorf("round trip = %v, want %v", back.Pairs(), f.Pairs())
	}
}

func TestEvent_Lifecycle(t *testing.T) {
	t.Parallel()

	now := time.Now()
	id := ID{Seconds: 10, Millis: 1, Serial: 2}
	syscall := &Record{Type: LookupType(TypeSyscall), ID: id}
	path := &Record{Type: LookupType(TypePath), ID: id}

	ev := NewEvent(syscall, now)
	ev.Append(path, now.Add(time.Millisecond))

	if ev.UUID == "" {
		t.Error("expected UUID to be assigned")
	}
	if ev.Finalized() {
		t.Error("new event should not be finalized")
	}
	if !reflect.DeepEqual(ev.Types(), []string{"SYSCALL", "PATH"}) {
		t.Errorf("Types() = %v", ev.Types())
	}
	if ev.Primary() != syscall {
		t.Error("Primary() should be the first record")
	}

	ev.Finalize(ReasonIdle)
	if ev.Complete {
		t.Error("idle-finalized event should be incomplete")
	}
	ev.Finalize(ReasonTerminator)
	if !ev.Complete {
		t.Error("terminator-finalized event should be complete")
	}
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	id := ID{Seconds: 1364481363, Millis: 243, Serial: 24287}
	fields := NewFields(2)
	fields.Set("exe", "/usr/bin/cat")
	fields.Set("key", "(null)")
	rec := &Record{Type: LookupType(TypeSyscall), ID: id, Fields: fields, Raw: "type=SYSCALL ..."}

	ev := NewEvent(rec, time.Unix(100, 0).UTC())
	ev.Finalize(ReasonTerminator)

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var back Event
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.ID != id || back.UUID != ev.UUID || back.Reason != ReasonTerminator {
		t.Errorf("round trip header mismatch: %+v", back)
	}
	if len(back.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(back.Records))
	}
	got := back.Records[0]
	if !got.Type.Known() || got.Type.Code != 1300 {
		t.Errorf("record type lost in round trip: %+v", got.Type)
	}
	if !reflect.DeepEqual(got.Fields.Keys(), []string{"exe", "key"}) {
		t.Errorf("field order lost: %v", got.Fields.Keys())
	}
}
