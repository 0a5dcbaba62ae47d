// Auditstream - Linux Audit Event Correlation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditstream

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/auditstream/internal/config"
	"github.com/tomtom215/auditstream/internal/correlator"
	"github.com/tomtom215/auditstream/internal/logging"
	"github.com/tomtom215/auditstream/internal/metrics"
	"github.com/tomtom215/auditstream/internal/parser"
	"github.com/tomtom215/auditstream/internal/pipeline"
	"github.com/tomtom215/auditstream/internal/supervisor"
	"github.com/tomtom215/auditstream/internal/supervisor/services"
	"github.com/tomtom215/auditstream/internal/wal"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Auditstream stopped with error")
		os.Exit(1)
	}
}

//nolint:gocyclo // sequential startup and shutdown steps
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(cfg.LoggingSettings())

	logging.Info().
		Str("source", cfg.Source.Kind).
		Strs("sinks", cfg.Sink.Kinds).
		Bool("wal", cfg.WAL.Enabled).
		Msg("Starting auditstream")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	spool, err := openWAL(cfg)
	if err != nil {
		return err
	}
	defer closeWAL(spool)

	delivery, err := buildDelivery(ctx, cfg, spool)
	if err != nil {
		return err
	}
	defer delivery.Close()

	if spool != nil {
		recoverWAL(ctx, spool, delivery.router)
	}

	pl := pipeline.New(
		cfg.PipelineSettings(),
		src,
		parser.New(cfg.ParserOptions()),
		correlator.New(cfg.CorrelatorSettings()),
		delivery.sink,
	)

	tree, err := supervisor.NewSupervisorTree(
		logging.NewSlogLogger(logging.Component("supervisor")),
		cfg.TreeSettings(),
	)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	for _, svc := range pl.Services() {
		tree.AddPipelineService(svc)
	}

	if spool != nil {
		tree.AddDeliveryService(services.NewWALRetryLoopService(wal.NewRetryLoop(spool, delivery.router)))
		tree.AddDeliveryService(services.NewWALCompactorService(wal.NewCompactor(spool)))
		logging.Info().Msg("WAL retry loop and compactor added to supervisor tree")
	}

	health := &metrics.Health{}
	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.MetricsSettings(), health)
		tree.AddAPIService(services.NewMetricsServerService(server, 5*time.Second))
		logging.Info().Str("addr", server.Addr).Msg("Metrics server service added")
	}

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := tree.ServeBackground(ctx)
	health.SetReady(true)

	watchLogLevel()

	var treeErr error
	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		health.SetReady(false)
		if err := pl.Drain(cfg.DrainTimeout()); err != nil {
			logging.Warn().Err(err).Msg("Shutting down with events still in flight")
		}
	case <-pl.Done():
		logging.Info().Msg("Source exhausted, all events delivered")
	case err := <-errCh:
		treeErr = err
	}

	health.SetReady(false)
	cancel()

	for err := range errCh {
		if treeErr == nil {
			treeErr = err
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		if errors.Is(treeErr, suture.ErrTerminateSupervisorTree) {
			return errors.New("pipeline terminated: source could not be started")
		}
		return fmt.Errorf("supervisor tree: %w", treeErr)
	}

	logging.Info().Msg("Auditstream stopped gracefully")
	return nil
}

// watchLogLevel re-reads the config file when it changes and applies the
// new log level. Other settings need a restart.
func watchLogLevel() {
	path := config.FilePath()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		next, err := config.LoadFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config change")
			return
		}
		logging.SetLevel(next.Logging.Level)
		logging.Info().Str("level", next.Logging.Level).Msg("Config file changed, log level applied")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
