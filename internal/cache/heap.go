// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package cache

import "time"

// HeapEntry is an entry in a MinHeap.
type HeapEntry[K comparable, V any] struct {
	Key       K
	Value     V
	Timestamp time.Time
	index     int
}

// MinHeap is a min-heap ordered by timestamp with O(1) key lookup.
// Push, Update and Remove are O(log n); Peek is O(1).
//
// MinHeap is not safe for concurrent use. It is meant to be owned by a
// single goroutine, such as the correlator stage, which indexes in-flight
// groups by last activity for idle expiry and oldest-first eviction.
type MinHeap[K comparable, V any] struct {
	heap  []*HeapEntry[K, V]
	byKey map[K]*HeapEntry[K, V]
}

// NewMinHeap creates a heap sized for n entries.
func NewMinHeap[K comparable, V any](n int) *MinHeap[K, V] {
	return &MinHeap[K, V]{
		heap:  make([]*HeapEntry[K, V], 0, n),
		byKey: make(map[K]*HeapEntry[K, V], n),
	}
}

// Push inserts key, or updates its value and timestamp if already present.
func (h *MinHeap[K, V]) Push(key K, value V, ts time.Time) {
	if e, ok := h.byKey[key]; ok {
		e.Value = value
		e.Timestamp = ts
		h.fix(e.index)
		return
	}
	e := &HeapEntry[K, V]{Key: key, Value: value, Timestamp: ts, index: len(h.heap)}
	h.heap = append(h.heap, e)
	h.byKey[key] = e
	h.up(e.index)
}

// Touch moves key's timestamp to ts. It returns false if key is absent.
func (h *MinHeap[K, V]) Touch(key K, ts time.Time) bool {
	e, ok := h.byKey[key]
	if !ok {
		return false
	}
	e.Timestamp = ts
	h.fix(e.index)
	return true
}

// Get returns the entry for key, or nil.
func (h *MinHeap[K, V]) Get(key K) *HeapEntry[K, V] {
	return h.byKey[key]
}

// Peek returns the oldest entry without removing it, or nil when empty.
func (h *MinHeap[K, V]) Peek() *HeapEntry[K, V] {
	if len(h.heap) == 0 {
		return nil
	}
	return h.heap[0]
}

// Pop removes and returns the oldest entry, or nil when empty.
func (h *MinHeap[K, V]) Pop() *HeapEntry[K, V] {
	if len(h.heap) == 0 {
		return nil
	}
	return h.removeAt(0)
}

// Remove deletes key and returns its entry, or nil if absent.
func (h *MinHeap[K, V]) Remove(key K) *HeapEntry[K, V] {
	e, ok := h.byKey[key]
	if !ok {
		return nil
	}
	return h.removeAt(e.index)
}

// PopBefore removes and returns, oldest first, every entry whose timestamp
// is before t.
func (h *MinHeap[K, V]) PopBefore(t time.Time) []*HeapEntry[K, V] {
	var out []*HeapEntry[K, V]
	for len(h.heap) > 0 && h.heap[0].Timestamp.Before(t) {
		out = append(out, h.removeAt(0))
	}
	return out
}

// Drain removes every entry, oldest first.
func (h *MinHeap[K, V]) Drain() []*HeapEntry[K, V] {
	out := make([]*HeapEntry[K, V], 0, len(h.heap))
	for len(h.heap) > 0 {
		out = append(out, h.removeAt(0))
	}
	return out
}

// Len returns the number of entries.
func (h *MinHeap[K, V]) Len() int { return len(h.heap) }

func (h *MinHeap[K, V]) removeAt(i int) *HeapEntry[K, V] {
	last := len(h.heap) - 1
	e := h.heap[i]
	delete(h.byKey, e.Key)

	if i != last {
		h.heap[i] = h.heap[last]
		h.heap[i].index = i
	}
	h.heap[last] = nil
	h.heap = h.heap[:last]
	if i < len(h.heap) {
		h.fix(i)
	}
	e.index = -1
	return e
}

func (h *MinHeap[K, V]) fix(i int) {
	if !h.up(i) {
		h.down(i)
	}
}

func (h *MinHeap[K, V]) less(i, j int) bool {
	return h.heap[i].Timestamp.Before(h.heap[j].Timestamp)
}

func (h *MinHeap[K, V]) up(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *MinHeap[K, V]) down(i int) {
	n := len(h.heap)
	for {
		smallest := i
		if l := 2*i + 1; l < n && h.less(l, smallest) {
			smallest = l
		}
		if r := 2*i + 2; r < n && h.less(r, smallest) {
			smallest = r
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *MinHeap[K, V]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.heap[i].index = i
	h.heap[j].index = j
}
