// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package logging provides the zerolog-based structured logger used by every
// auditstream component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("source", "netlink").Msg("Source started")
//	logging.Err(err).Msg("Sink write failed")
//
//	log := logging.Component("correlator")
//	log.Debug().Int("groups", n).Msg("Sweep complete")
//
// Every entry carries "service" and "host" fields; SetLevel adjusts the
// level at runtime (used when the config file changes).
//
// # Configuration
//
// The logger is configured from the logging section of the application
// config (LOG_LEVEL, LOG_FORMAT, LOG_CALLER environment variables):
//
//	level   trace, debug, info, warn, error (default: info)
//	format  json, console (default: json)
//	caller  include file:line (default: false)
//
// # Opaque payloads
//
// Kernel messages are not guaranteed to be UTF-8. Payload attaches them to an
// event as a string when possible and as a hex dump otherwise:
//
//	logging.Payload(logging.Warn(), raw).Msg("Unparseable message")
//
// # slog bridge
//
// SlogHandler adapts zerolog to log/slog so the supervisor tree can log via
// sutureslog without a second logging stack.
package logging
