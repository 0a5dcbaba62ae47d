// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type innerConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"gte=1ms"`
	Mode    string        `koanf:"mode" validate:"oneof=fast slow"`
}

type testConfig struct {
	Name  string      `koanf:"name" validate:"required"`
	Size  int         `koanf:"size" validate:"min=1,max=10"`
	Inner innerConfig `koanf:"inner"`
	Kinds []string    `koanf:"kinds" validate:"min=1,dive,oneof=a b"`
}

func validConfig() testConfig {
	return testConfig{
		Name:  "x",
		Size:  5,
		Inner: innerConfig{Timeout: time.Second, Mode: "fast"},
		Kinds: []string{"a"},
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(validConfig()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_FieldPaths(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*testConfig)
		field   string
		tag     string
		message string
	}{
		{"required", func(c *testConfig) { c.Name = "" }, "name", "required", "name is required"},
		{"min", func(c *testConfig) { c.Size = 0 }, "size", "min", "size must be at least 1"},
		{"max", func(c *testConfig) { c.Size = 11 }, "size", "max", "size must be at most 10"},
		{"nested duration", func(c *testConfig) { c.Inner.Timeout = 0 }, "inner.timeout", "gte", "inner.timeout must be greater than or equal to 1ms"},
		{"oneof", func(c *testConfig) { c.Inner.Mode = "medium" }, "inner.mode", "oneof", "inner.mode must be one of: fast slow"},
		{"dive", func(c *testConfig) { c.Kinds = []string{"a", "z"} }, "kinds[1]", "oneof", "kinds[1] must be one of: a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateStruct(cfg)
			var ve *Errors
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *Errors", err)
			}
			if len(ve.Errors()) != 1 {
				t.Fatalf("got %d errors: %v", len(ve.Errors()), ve)
			}
			fe := ve.Errors()[0]
			if fe.Field() != tt.field || fe.Tag() != tt.tag {
				t.Errorf("field=%q tag=%q, want %q %q", fe.Field(), fe.Tag(), tt.field, tt.tag)
			}
			if fe.Error() != tt.message {
				t.Errorf("message = %q, want %q", fe.Error(), tt.message)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Name = ""
	cfg.Size = 0
	err := ValidateStruct(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "name is required; size must be at least 1") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidateStruct_NotAStruct(t *testing.T) {
	err := ValidateStruct(42)
	var ve *Errors
	if !errors.As(err, &ve) || ve.Errors()[0].Field() != "unknown" {
		t.Errorf("err = %v", err)
	}
}

func TestFieldPath(t *testing.T) {
	if got := fieldPath("Config.wal.path"); got != "wal.path" {
		t.Errorf("fieldPath = %q", got)
	}
	if got := fieldPath("Config"); got != "Config" {
		t.Errorf("fieldPath = %q", got)
	}
}
