// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/correlator"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/metrics"
	"github.com/tomtom215/auditstream/internal/parser"
	"github.com/tomtom215/auditstream/internal/sink"
	"github.com/tomtom215/auditstream/internal/source"
)

var (
	setChannelDepth   = metrics.SetChannelDepth
	setGroupsInFlight = metrics.SetGroupsInFlight
)

// parseStage starts the source and turns its lines into records.
type parseStage struct {
	src     source.Source
	parser  *parser.Parser
	out     chan<- *audit.Record
	limiter *rate.Limiter

	closeOut   sync.Once
	suppressed int
}

func newParseStage(src source.Source, p *parser.Parser, out chan<- *audit.Record, limiter *rate.Limiter) *parseStage {
	return &parseStage{src: src, parser: p, out: out, limiter: limiter}
}

func (s *parseStage) String() string { return "parse" }

func (s *parseStage) Serve(ctx context.Context) error {
	if err := s.src.Start(ctx); err != nil && !errors.Is(err, source.ErrAlreadyStarted) {
		s.finish()
		logging.Error().Err(err).Str("source", s.src.Name()).Msg("Source failed to start")
		return suture.ErrTerminateSupervisorTree
	}

	lines := s.src.C()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-lines:
			if !ok {
				s.endOfStream()
				return suture.ErrDoNotRestart
			}
			rec, err := s.parser.Parse(raw)
			if err != nil {
				s.reject(raw, err)
				continue
			}
			metrics.RecordParsed(rec.Type.String())
			select {
			case s.out <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *parseStage) reject(raw []byte, err error) {
	kind := parser.KindOf(err)
	metrics.RecordParseError(kind.String())
	if !s.limiter.Allow() {
		s.suppressed++
		return
	}
	ev := logging.Payload(logging.Warn().Err(err).Str("kind", kind.String()), raw)
	if s.suppressed > 0 {
		ev = ev.Int("suppressed", s.suppressed)
		s.suppressed = 0
	}
	ev.Msg("Dropping unparseable audit line")
}

func (s *parseStage) endOfStream() {
	if err := s.src.Err(); err != nil {
		logging.Error().Err(err).Str("source", s.src.Name()).Msg("Source terminated with error")
	} else {
		logging.Info().Str("source", s.src.Name()).Msg("Source exhausted")
	}
	s.finish()
}

func (s *parseStage) finish() { s.closeOut.Do(func() { close(s.out) }) }

// correlateStage groups records into events and sweeps idle groups.
type correlateStage struct {
	c      *correlator.Correlator
	in     <-chan *audit.Record
	out    chan<- *audit.Event
	sweep  time.Duration
	sample func()
	now    func() time.Time

	closeOut sync.Once
}

func newCorrelateStage(c *correlator.Correlator, in <-chan *audit.Record, out chan<- *audit.Event, sweep time.Duration, sample func()) *correlateStage {
	return &correlateStage{c: c, in: in, out: out, sweep: sweep, sample: sample, now: time.Now}
}

func (s *correlateStage) String() string { return "correlate" }

func (s *correlateStage) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case rec, ok := <-s.in:
			if !ok {
				if err := s.emit(ctx, s.c.Flush()); err != nil {
					return err
				}
				s.closeOut.Do(func() { close(s.out) })
				setGroupsInFlight(0)
				logging.Info().Uint64("records", s.c.Stats().Ingested).Msg("Correlator flushed")
				return suture.ErrDoNotRestart
			}
			evs := s.c.Ingest(rec)
			setGroupsInFlight(s.c.Len())
			if err := s.emit(ctx, evs); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.emit(ctx, s.c.Expire(s.now())); err != nil {
				return err
			}
			setGroupsInFlight(s.c.Len())
			if s.sample != nil {
				s.sample()
			}
		}
	}
}

// emit blocks until each event is accepted downstream.
func (s *correlateStage) emit(ctx context.Context, evs []*audit.Event) error {
	for _, ev := range evs {
		metrics.RecordEventFinalized(string(ev.Reason), ev.Len())
		select {
		case s.out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// sinkStage writes events to the sink.
type sinkStage struct {
	sink    sink.Sink
	in      <-chan *audit.Event
	timeout time.Duration

	done      chan struct{}
	closeDone sync.Once
}

func newSinkStage(s sink.Sink, in <-chan *audit.Event, timeout time.Duration) *sinkStage {
	return &sinkStage{sink: s, in: in, timeout: timeout, done: make(chan struct{})}
}

func (s *sinkStage) String() string { return "sink" }

func (s *sinkStage) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.in:
			if !ok {
				s.closeDone.Do(func() { close(s.done) })
				return suture.ErrDoNotRestart
			}
			s.write(ctx, ev)
		}
	}
}

// write completes even if ctx is cancelled mid-write, bounded by timeout.
func (s *sinkStage) write(ctx context.Context, ev *audit.Event) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.sink.Write(wctx, ev); err != nil {
		logging.Error().Err(err).
			Str("sink", s.sink.Name()).
			Str("audit_id", ev.ID.String()).
			Int("records", ev.Len()).
			Msg("Sink write failed")
	}
}
