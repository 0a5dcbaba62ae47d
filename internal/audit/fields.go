// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package audit

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Field is a single key/value pair from an audit line.
type Field struct {
	Key   string
	Value string
}

// Fields is an insertion-ordered string map. Values are kept verbatim; no
// type coercion happens at this layer. Setting an existing key replaces the
// value and keeps the original position.
type Fields struct {
	list  []Field
	index map[string]int
}

// NewFields returns an empty Fields with room for n entries.
func NewFields(n int) Fields {
	return Fields{
		list:  make([]Field, 0, n),
		index: make(map[string]int, n),
	}
}

// Set stores value under key.
func (f *Fields) Set(key, value string) {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[key]; ok {
		f.list[i].Value = value
		return
	}
	f.index[key] = len(f.list)
	f.list = append(f.list, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (f Fields) Get(key string) (string, bool) {
	i, ok := f.index[key]
	if !ok {
		return "", false
	}
	return f.list[i].Value, true
}

// Value returns the value stored under key, or "" if absent.
func (f Fields) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

// Len returns the number of fields.
func (f Fields) Len() int { return len(f.list) }

// Keys returns the field names in insertion order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f.list))
	for i, kv := range f.list {
		keys[i] = kv.Key
	}
	return keys
}

// Each calls fn for every field in insertion order until fn returns false.
func (f Fields) Each(fn func(key, value string) bool) {
	for _, kv := range f.list {
		if !fn(kv.Key, kv.Value) {
			return
		}
	}
}

// Pairs returns a copy of the fields in insertion order.
func (f Fields) Pairs() []Field {
	out := make([]Field, len(f.list))
	copy(out, f.list)
	return out
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range f.list {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	out := NewFields(8)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("fields: value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}
