// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

/*
Package source produces raw audit lines for the pipeline.

Two implementations share the Source contract:

  - Netlink subscribes to the kernel's audit multicast group over a
    NETLINK_AUDIT socket (Linux only) and renders each message as a
    log-format line, "type=<NAME> msg=audit(...): ...".
  - Replay plays back a captured audit.log immediately, with its original
    relative timing (optionally sped up), or at a fixed interval.

Both feed a bounded queue from a single producer goroutine. A full queue
blocks the producer, which is how sink backpressure reaches the kernel
socket. Stop cancels the producer even in the middle of a replay delay.

Usage:

	src, err := source.NewReplay("audit.log", source.DefaultReplayConfig())
	if err != nil {
		return err
	}
	if err := src.Start(ctx); err != nil {
		return err
	}
	defer src.Stop()

	for line := range src.C() {
		// parse line
	}
	if err := src.Err(); err != nil {
		// stream ended abnormally
	}
*/
package source
