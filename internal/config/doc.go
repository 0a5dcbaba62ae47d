// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

/*
Package config loads and validates the auditstream configuration.

# Sources

Configuration is layered with koanf, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, else the first of
    DefaultConfigPaths that exists
 3. Environment variables listed in envMappings, e.g. AUDIT_SOURCE,
    REPLAY_PATH, CORRELATOR_IDLE_TIMEOUT, SINK_KINDS, WAL_ENABLED,
    LOG_LEVEL

List values (sink.kinds, correlator.terminators) may be given in the
environment as comma-separated strings.

# Example

	source:
	  kind: replay
	  replay_path: /var/log/audit/audit.log
	  timing: immediate
	correlator:
	  idle_timeout: 2s
	  terminators: [EOE]
	sink:
	  kinds: [file, duckdb]
	  file_path: /var/lib/auditstream/events.jsonl
	wal:
	  enabled: true
	  path: /var/lib/auditstream/wal

# Validation

Validate runs the struct tags through the shared validator in
internal/validation, so field errors are reported by their YAML path
("correlator.idle_timeout must be ..."). Rules spanning fields follow:
the replay source needs a path, the sweep interval may not exceed the
idle timeout, terminators must be known record types, and an enabled WAL
must satisfy wal.Config.Validate.

# Conversion

The *Settings methods turn each section into the config struct of the
package that consumes it, so those packages do not import config.
*/
package config
