// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package correlator

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/cache"
)

// ErrInvariant marks a correlator bug, such as finalizing a group twice.
// It is raised with panic; the supervisor restarts the stage.
var ErrInvariant = errors.New("correlator invariant violated")

// Terminator reports whether a record type closes a multi-record group.
type Terminator func(audit.RecordType) bool

// TerminateOn returns a Terminator matching any of the given type names.
func TerminateOn(names ...string) Terminator {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(t audit.RecordType) bool {
		_, ok := set[t.Name]
		return ok
	}
}

// TerminateOnClass matches every type the lookup table classifies as a
// terminator.
func TerminateOnClass(t audit.RecordType) bool {
	return t.Class == audit.ClassTerminator
}

// DefaultTerminator closes groups on EOE, the kernel's end-of-event record.
var DefaultTerminator = TerminateOn(audit.TypeEOE)

// Config controls grouping and expiry.
type Config struct {
	// IdleTimeout finalizes a group that has seen no record for this long.
	IdleTimeout time.Duration

	// MaxGroups bounds the number of in-flight groups. Admitting a new
	// group at the limit evicts the least recently active one.
	MaxGroups int

	// MaxRecords finalizes a group once it holds this many records.
	MaxRecords int

	// RecentIDs is how many finalized IDs are remembered to classify late
	// records. Zero disables late detection; late records then simply
	// open a new group.
	RecentIDs int

	// Terminator decides which record types close a group.
	// Default: DefaultTerminator.
	Terminator Terminator

	// SplitStandalone emits standalone-class records (user-space messages)
	// as single-record events without waiting for a terminator.
	SplitStandalone bool

	// Clock supplies arrival times. Default: time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:     2 * time.Second,
		MaxGroups:       10000,
		MaxRecords:      512,
		RecentIDs:       4096,
		Terminator:      DefaultTerminator,
		SplitStandalone: true,
		Clock:           time.Now,
	}
}

// Stats are cumulative counters for one correlator.
type Stats struct {
	Ingested  uint64
	Finalized map[audit.Reason]uint64
}

// Correlator groups records by audit ID. It is owned by a single goroutine
// and is not safe for concurrent use; stages hand it records over a channel.
type Correlator struct {
	cfg    Config
	groups *cache.MinHeap[audit.ID, *audit.Event]
	recent *cache.RecentSet[audit.ID]
	stats  Stats
}

// New creates a correlator. Zero fields in cfg take their defaults.
func New(cfg Config) *Correlator {
	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.MaxGroups <= 0 {
		cfg.MaxGroups = def.MaxGroups
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = def.MaxRecords
	}
	if cfg.Terminator == nil {
		cfg.Terminator = def.Terminator
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	return &Correlator{
		cfg:    cfg,
		groups: cache.NewMinHeap[audit.ID, *audit.Event](min(cfg.MaxGroups, 1024)),
		recent: cache.NewRecentSet[audit.ID](cfg.RecentIDs),
		stats:  Stats{Finalized: make(map[audit.Reason]uint64)},
	}
}

// Ingest adds rec to its group and returns any events finalized as a
// result, in finalization order. A record can finalize its own group
// (terminator, size bound) and, when it opens a new group at the limit,
// the evicted oldest group.
func (c *Correlator) Ingest(rec *audit.Record) []*audit.Event {
	now := c.cfg.Clock()
	c.stats.Ingested++

	if entry := c.groups.Get(rec.ID); entry != nil {
		ev := entry.Value
		ev.Append(rec, now)
		c.groups.Touch(rec.ID, now)

		switch {
		case c.cfg.Terminator(rec.Type):
			return []*audit.Event{c.close(rec.ID, audit.ReasonTerminator)}
		case ev.Len() >= c.cfg.MaxRecords:
			return []*audit.Event{c.close(rec.ID, audit.ReasonMaxRecords)}
		}
		return nil
	}

	// Finalized groups are never reopened.
	if c.recent.Contains(rec.ID) {
		return []*audit.Event{c.single(rec, now, audit.ReasonLate)}
	}
	if c.cfg.SplitStandalone && rec.Type.Class == audit.ClassStandalone {
		return []*audit.Event{c.single(rec, now, audit.ReasonStandalone)}
	}
	if c.cfg.Terminator(rec.Type) {
		return []*audit.Event{c.single(rec, now, audit.ReasonTerminator)}
	}

	var out []*audit.Event
	if c.groups.Len() >= c.cfg.MaxGroups {
		oldest := c.groups.Pop()
		out = append(out, c.finalize(oldest.Value, audit.ReasonEvicted))
	}

	c.groups.Push(rec.ID, audit.NewEvent(rec, now), now)
	if c.cfg.MaxRecords == 1 {
		out = append(out, c.close(rec.ID, audit.ReasonMaxRecords))
	}
	return out
}

// Expire finalizes every group whose last record arrived more than
// IdleTimeout before now, oldest first.
func (c *Correlator) Expire(now time.Time) []*audit.Event {
	stale := c.groups.PopBefore(now.Add(-c.cfg.IdleTimeout))
	if len(stale) == 0 {
		return nil
	}
	out := make([]*audit.Event, len(stale))
	for i, e := range stale {
		out[i] = c.finalize(e.Value, audit.ReasonIdle)
	}
	return out
}

// Flush finalizes every in-flight group, oldest first. Used at end of stream.
func (c *Correlator) Flush() []*audit.Event {
	all := c.groups.Drain()
	out := make([]*audit.Event, len(all))
	for i, e := range all {
		out[i] = c.finalize(e.Value, audit.ReasonFlushed)
	}
	return out
}

// Len returns the number of in-flight groups.
func (c *Correlator) Len() int { return c.groups.Len() }

// Oldest returns the last-activity time of the least recently active group.
func (c *Correlator) Oldest() (time.Time, bool) {
	e := c.groups.Peek()
	if e == nil {
		return time.Time{}, false
	}
	return e.Timestamp, true
}

// Stats returns a copy of the cumulative counters.
func (c *Correlator) Stats() Stats {
	fin := make(map[audit.Reason]uint64, len(c.stats.Finalized))
	for k, v := range c.stats.Finalized {
		fin[k] = v
	}
	return Stats{Ingested: c.stats.Ingested, Finalized: fin}
}

// IdleTimeout returns the effective idle timeout.
func (c *Correlator) IdleTimeout() time.Duration { return c.cfg.IdleTimeout }

// close removes an in-flight group and finalizes it.
func (c *Correlator) close(id audit.ID, reason audit.Reason) *audit.Event {
	entry := c.groups.Remove(id)
	if entry == nil {
		panic(fmt.Errorf("%w: finalize of unknown group %s", ErrInvariant, id))
	}
	return c.finalize(entry.Value, reason)
}

// single emits rec as a one-record event without entering the group map.
func (c *Correlator) single(rec *audit.Record, now time.Time, reason audit.Reason) *audit.Event {
	return c.finalize(audit.NewEvent(rec, now), reason)
}

func (c *Correlator) finalize(ev *audit.Event, reason audit.Reason) *audit.Event {
	if ev.Finalized() {
		panic(fmt.Errorf("%w: group %s finalized twice (%s, then %s)", ErrInvariant, ev.ID, ev.Reason, reason))
	}
	ev.Finalize(reason)
	c.recent.Add(ev.ID)
	c.stats.Finalized[reason]++
	return ev
}
