// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package validation wraps go-playground/validator for configuration
// structs. Errors name fields by their koanf path so a message points at
// the exact YAML key:
//
//	correlator.idle_timeout must be greater than or equal to 1ms
package validation
