// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

/*
Package supervisor provides the suture/v4 service tree that runs the
pipeline stages, the WAL delivery loops, and the metrics server.

# Tree

	auditstream (root)
	├── pipeline-layer   parse, correlate, sink
	├── delivery-layer   wal-retry-loop, wal-compactor
	└── api-layer        http-server

Failures are counted per supervisor with exponential decay; a service that
exceeds FailureThreshold is held in FailureBackoff before the next restart.
Pipeline stages return suture.ErrDoNotRestart once their input has ended,
so a finished replay winds down instead of restarting.

Supervisor events go through sutureslog to the zerolog-backed slog logger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logging.Component("supervisor")), cfg)
	for _, svc := range p.Services() {
	    tree.AddPipelineService(svc)
	}
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
