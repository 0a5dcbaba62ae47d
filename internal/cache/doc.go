// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

/*
Package cache provides the generic in-memory structures behind the
correlator.

# MinHeap

MinHeap indexes entries by key and orders them by timestamp. The
correlator keys open groups by audit ID and timestamps them with their
last activity, which gives:

  - O(1) lookup of the group a record belongs to
  - O(log n) touch when a record extends a group
  - O(1) peek at the least recently active group for idle expiry and
    eviction at the group limit

Typical use:

	h := cache.NewMinHeap[audit.ID, *audit.Event](1024)
	h.Push(id, ev, now)
	for _, e := range h.PopBefore(now.Add(-idle)) {
	    // finalize e.Value
	}

# RecentSet

RecentSet is a fixed-size ring of recently seen keys. The correlator adds
each finalized audit ID so a record arriving after its group was closed
is recognized as late rather than opening a fresh group.

# Thread Safety

Neither type is safe for concurrent use. Both are owned by the single
goroutine of the correlate stage.
*/
package cache
