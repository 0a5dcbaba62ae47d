// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/auditstream/internal/config"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/sink"
	"github.com/tomtom215/auditstream/internal/source"
	"github.com/tomtom215/auditstream/internal/wal"
)

func buildSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceReplay:
		r, err := source.NewReplay(cfg.Source.ReplayPath, cfg.ReplaySettings())
		if err != nil {
			return nil, fmt.Errorf("open replay source: %w", err)
		}
		logging.Info().
			Str("path", cfg.Source.ReplayPath).
			Str("timing", cfg.Source.Timing).
			Int("lines", r.Len()).
			Msg("Replay source loaded")
		return r, nil
	case config.SourceNetlink:
		n, err := source.NewNetlink(cfg.NetlinkSettings())
		if err != nil {
			return nil, fmt.Errorf("open netlink source: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// openWAL returns nil when the WAL is disabled.
func openWAL(cfg *config.Config) (*wal.BadgerWAL, error) {
	walCfg := cfg.WALSettings()
	if !walCfg.Enabled {
		logging.Warn().Msg("WAL disabled (WAL_ENABLED=false). Events that exhaust their retries are reported, not spooled.")
		return nil, nil
	}
	logging.Info().Str("path", walCfg.Path).Bool("sync_writes", walCfg.SyncWrites).Msg("Opening WAL")
	w, err := wal.Open(&walCfg)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	return w, nil
}

func closeWAL(w *wal.BadgerWAL) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing WAL")
	}
}

// recoverWAL redelivers entries left by a previous run. Failures stay in
// the WAL for the retry loop.
func recoverWAL(ctx context.Context, w *wal.BadgerWAL, r wal.Redeliverer) {
	result, err := w.RecoverPending(ctx, r)
	if err != nil {
		logging.Warn().Err(err).Msg("WAL recovery error")
		return
	}
	if result != nil && result.TotalPending > 0 {
		logging.Info().
			Int("total", result.TotalPending).
			Int("recovered", result.Recovered).
			Int("failed", result.Failed).
			Int("expired", result.Expired).
			Msg("WAL recovery completed")
	}
}

// delivery is the sink side of the process: the fan-out the pipeline
// writes to and the router the WAL redelivers through.
type delivery struct {
	sink   sink.Sink
	router *sink.Router
}

func (d *delivery) Close() {
	if err := d.sink.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing sinks")
	}
}

func buildDelivery(ctx context.Context, cfg *config.Config, w *wal.BadgerWAL) (*delivery, error) {
	var spool sink.Spooler
	if w != nil {
		spool = w
	}

	var (
		sinks      []sink.Sink
		deliverers []sink.Deliverer
	)
	for _, kind := range cfg.Sink.Kinds {
		inner, err := newSink(ctx, cfg, kind)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, err
		}
		r := sink.NewResilient(inner, cfg.RetrySettings(), cfg.BreakerSettings(), spool)
		sinks = append(sinks, r)
		deliverers = append(deliverers, r)
		logging.Info().Str("sink", inner.Name()).Msg("Sink ready")
	}
	if len(sinks) == 0 {
		return nil, errors.New("no sinks configured")
	}
	return &delivery{
		sink:   sink.NewMulti(sinks...),
		router: sink.NewRouter(deliverers...),
	}, nil
}

func newSink(ctx context.Context, cfg *config.Config, kind string) (sink.Sink, error) {
	switch kind {
	case config.SinkFile:
		s, err := sink.NewFileSink(cfg.Sink.FilePath)
		if err != nil {
			return nil, fmt.Errorf("open file sink: %w", err)
		}
		return s, nil
	case config.SinkNATS:
		s, err := sink.NewNATSSink(ctx, cfg.NATSSettings())
		if err != nil {
			return nil, fmt.Errorf("open nats sink: %w", err)
		}
		return s, nil
	case config.SinkDuckDB:
		s, err := sink.NewDuckDBSink(ctx, cfg.DuckDB.Path)
		if err != nil {
			return nil, fmt.Errorf("open duckdb sink: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", kind)
	}
}
