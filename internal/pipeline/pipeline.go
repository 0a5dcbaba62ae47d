// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/auditstream/internal/audit"
	"github.com/tomtom215/auditstream/internal/correlator"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/parser"
	"github.com/tomtom215/auditstream/internal/sink"
	"github.com/tomtom215/auditstream/internal/source"
)

// ErrDrainTimeout is returned by Drain when in-flight events did not reach
// the sink in time.
var ErrDrainTimeout = errors.New("pipeline drain timed out")

// Config controls the stage wiring.
type Config struct {
	// ChannelCapacity bounds each inter-stage channel.
	ChannelCapacity int

	// SweepInterval is how often the correlator checks for idle groups.
	SweepInterval time.Duration

	// WriteTimeout bounds one sink write. The write runs detached from
	// cancellation so a shutdown does not cut it short.
	WriteTimeout time.Duration

	// ParseErrorLogRate and ParseErrorLogBurst limit parse error logging.
	// Every error is still counted.
	ParseErrorLogRate  rate.Limit
	ParseErrorLogBurst int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ChannelCapacity:    source.DefaultQueueSize,
		SweepInterval:      250 * time.Millisecond,
		WriteTimeout:       30 * time.Second,
		ParseErrorLogRate:  rate.Every(time.Second),
		ParseErrorLogBurst: 10,
	}
}

// Pipeline connects a source, parser, correlator, and sink:
//
//	source ─[]byte→ parse ─*Record→ correlate ─*Event→ sink
//
// Each arrow is a bounded channel, so a slow sink blocks the correlator,
// which blocks the parser, which stops draining the source queue.
type Pipeline struct {
	cfg Config
	src source.Source

	records chan *audit.Record
	events  chan *audit.Event

	parse     *parseStage
	correlate *correlateStage
	write     *sinkStage
}

// New builds a pipeline. The correlator and sink are owned by their stages
// from here on; the caller closes the sink after the pipeline is done.
func New(cfg Config, src source.Source, p *parser.Parser, c *correlator.Correlator, s sink.Sink) *Pipeline {
	def := DefaultConfig()
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = def.ChannelCapacity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ParseErrorLogRate == 0 {
		cfg.ParseErrorLogRate = def.ParseErrorLogRate
		cfg.ParseErrorLogBurst = def.ParseErrorLogBurst
	}

	pl := &Pipeline{
		cfg:     cfg,
		src:     src,
		records: make(chan *audit.Record, cfg.ChannelCapacity),
		events:  make(chan *audit.Event, cfg.ChannelCapacity),
	}
	pl.parse = newParseStage(src, p, pl.records, rate.NewLimiter(cfg.ParseErrorLogRate, cfg.ParseErrorLogBurst))
	pl.correlate = newCorrelateStage(c, pl.records, pl.events, cfg.SweepInterval, pl.sampleDepths)
	pl.write = newSinkStage(s, pl.events, cfg.WriteTimeout)
	return pl
}

// Services returns the stage services in pipeline order, for registration
// with a supervisor.
func (p *Pipeline) Services() []suture.Service {
	return []suture.Service{p.parse, p.correlate, p.write}
}

// Done is closed once the sink stage has written the last event.
func (p *Pipeline) Done() <-chan struct{} { return p.write.done }

// Drain stops the source and waits for everything already read to flow
// through to the sink: the parser drains the queue, the correlator
// flushes its open groups, the sink writes the rest.
func (p *Pipeline) Drain(timeout time.Duration) error {
	logging.Info().Dur("timeout", timeout).Msg("Draining pipeline")
	p.src.Stop()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.Done():
		logging.Info().Msg("Pipeline drained")
		return nil
	case <-t.C:
		return fmt.Errorf("%w after %s", ErrDrainTimeout, timeout)
	}
}

// Run serves the stages under a private supervisor until the stream ends
// or ctx is cancelled. It is the entry point for tests and one-shot
// replays; long-running processes register Services with the tree.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup := suture.New("pipeline", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Warn().Str("event", e.String()).Msg("Pipeline supervisor event")
		},
	})
	for _, svc := range p.Services() {
		sup.Add(svc)
	}
	errCh := sup.ServeBackground(ctx)

	select {
	case <-p.Done():
		cancel()
		<-errCh
		return nil
	case err := <-errCh:
		// The tree stopped on its own, e.g. the source failed to start.
		if err == nil || errors.Is(err, context.Canceled) {
			err = errors.New("pipeline supervisor stopped before end of stream")
		}
		return err
	case <-ctx.Done():
		<-errCh
		return ctx.Err()
	}
}

// Depths reports the current backlog of each hop.
func (p *Pipeline) Depths() map[string]int {
	return map[string]int{
		"records": len(p.records),
		"events":  len(p.events),
	}
}

func (p *Pipeline) sampleDepths() {
	for hop, n := range p.Depths() {
		setChannelDepth(hop, n)
	}
}
