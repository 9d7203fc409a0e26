// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command server is trackerd's entry point: a GPS tracking server for
// sailing events. It ingests position reports over UDP and HTTP,
// authenticates and routes them per event, maintains per-event live and
// historical state on disk, runs background summary/compression/rotation
// loops, and serves an admin/manager HTTP API — all under a suture
// supervisor tree so a crash in one layer never takes down the others.
//
// Configuration is layered: built-in defaults, an optional settings.json,
// environment variables (TRACKERD_*), and finally command-line flags —
// see internal/config. Exit codes: 0 after shutdown, 1 when loading
// settings or creating the data directory, registry or raw log fails,
// 2 on a flag or validation error. A listener that fails to bind returns
// its error to the supervisor tree, which restarts it with backoff; a
// bind failure does not end the process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/api"
	"github.com/windtrace/trackerd/internal/config"
	"github.com/windtrace/trackerd/internal/ingest"
	"github.com/windtrace/trackerd/internal/logging"
	"github.com/windtrace/trackerd/internal/ratelimit"
	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/supervisor"
	"github.com/windtrace/trackerd/internal/tracker"
	"github.com/windtrace/trackerd/internal/workers"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "trackerd:", err)
		return 1
	}

	fs := config.NewFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "trackerd:", err)
		return 2
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Caller: cfg.LogCaller})
	logger := logging.Logger()
	logger.Info().
		Int("port", cfg.Port).
		Int("http_port", cfg.HTTPPort).
		Bool("multi_event", cfg.MultiEventMode()).
		Str("data_dir", cfg.DataDir).
		Msg("trackerd starting")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create data directory")
		return 1
	}

	now := time.Now
	reg, err := buildRegistry(cfg, now, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize event registry")
		return 1
	}

	trackers := tracker.NewManager(cfg.DataDir, reg, now, logger)
	limiter := ratelimit.New(ratelimit.DefaultBlockWindow, ratelimit.DefaultCapacity, now)
	router := ingest.NewRouter(reg, trackers, limiter, now, logger)

	var rawLog *ingest.RawLog
	if cfg.RawLogPath != "" {
		rawLog, err = ingest.NewRawLog(cfg.RawLogPath, logger)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.RawLogPath).Msg("failed to open legacy raw log")
			return 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logger.Error().Err(err).Msg("failed to create supervisor tree")
		return 1
	}

	udpAddr := fmt.Sprintf(":%d", cfg.Port)
	tree.AddIngestService(ingest.NewUDPListener(udpAddr, router, rawLog, now, logger))

	tree.AddWorkerService(workers.NewSummaryWorker(trackers, workers.DefaultSummaryInterval, now, logger))
	tree.AddWorkerService(workers.NewCompressor(trackers, workers.DefaultCompressorInterval, workers.DefaultLiveWindow, now, logger))
	tree.AddWorkerService(workers.NewMidnightClearer(trackers, reg, workers.DefaultMidnightInterval, now, logger))

	if !cfg.NoHTTP {
		apiServer := api.NewServer(reg, trackers, cfg.StaticDir, now, logger)
		handler := apiServer.Handler(func(r chi.Router) {
			r.Post("/api/tracker", ingest.HTTPHandler(router, now, logger))
			r.Post("/api/owntracks/{eid}", ingest.OwnTracksHandler(router, trackers, ownTracksPasswordLookup(reg), now, logger))
		})
		httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
		tree.AddAPIService(api.NewHTTPServer(httpAddr, handler, 10*time.Second, logger))
		logger.Info().Str("addr", httpAddr).Msg("HTTP listener configured")
	} else {
		logger.Warn().Msg("HTTP listener disabled (--no-http)")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("supervisor tree exited with error")
		}
	}
	for err := range errCh {
		if err != nil {
			logger.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logger.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logger.Info().Msg("trackerd stopped")
	return 0
}

// ownTracksPasswordLookup returns the per-event owntracks_password
// override, set via the manager create/update endpoints, falling back to
// the event's tracker_password (OwnTracksHandler's default) when unset.
func ownTracksPasswordLookup(reg registry.Registry) func(eventID int) string {
	return func(eventID int) string {
		ev, err := reg.Get(eventID)
		if err != nil {
			return ""
		}
		return ev.OwnTracksPassword
	}
}

// buildRegistry selects between registry.Catalog (multi-event mode) and
// registry.Static (legacy single-event mode) per spec.md §4.4, without
// the rest of the system needing to know which is in play.
func buildRegistry(cfg *config.Config, now func() time.Time, logger zerolog.Logger) (registry.Registry, error) {
	if !cfg.MultiEventMode() {
		return registry.NewStatic(cfg.AdminPassword, cfg.TrackerPassword, cfg.Timezone, now), nil
	}
	eventsPath := filepath.Join(cfg.DataDir, "events.json")
	return registry.NewCatalog(eventsPath, cfg.DataDir, cfg.ManagerPassword, now, logger)
}
