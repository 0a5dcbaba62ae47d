// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

// Package services adapts long-running components to suture.Service.
//
//   - LoopService: wal.RetryLoop and wal.Compactor (Start, wait, Stop)
//   - MetricsServerService: the metrics and health endpoint
//
// Pipeline stages implement suture.Service themselves and need no wrapper.
package services
