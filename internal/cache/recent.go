// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package cache

// RecentSet remembers the last N keys added, forgetting the oldest first.
// Add and Contains are O(1). The correlator uses it to recognize records
// that arrive after their group was already finalized.
//
// RecentSet is not safe for concurrent use.
type RecentSet[K comparable] struct {
	ring  []K
	next  int
	full  bool
	items map[K]int // key -> number of live ring slots holding it
}

// NewRecentSet creates a set remembering up to capacity keys.
// A non-positive capacity yields a set that remembers nothing.
func NewRecentSet[K comparable](capacity int) *RecentSet[K] {
	if capacity < 0 {
		capacity = 0
	}
	return &RecentSet[K]{
		ring:  make([]K, capacity),
		items: make(map[K]int, capacity),
	}
}

// Add records key, evicting the oldest key when at capacity.
func (s *RecentSet[K]) Add(key K) {
	if len(s.ring) == 0 {
		return
	}
	if s.full {
		old := s.ring[s.next]
		if s.items[old] <= 1 {
			delete(s.items, old)
		} else {
			s.items[old]--
		}
	}
	s.ring[s.next] = key
	s.items[key]++
	s.next++
	if s.next == len(s.ring) {
		s.next = 0
		s.full = true
	}
}

// Contains reports whether key is among the remembered keys.
func (s *RecentSet[K]) Contains(key K) bool {
	_, ok := s.items[key]
	return ok
}

// Len returns the number of distinct keys remembered.
func (s *RecentSet[K]) Len() int { return len(s.items) }
