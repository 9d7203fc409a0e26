// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package supervisor provides process supervision for trackerd using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of every long-running service in the process. It provides
Erlang/OTP-style supervision: automatic restart with exponential backoff,
per-layer failure isolation, and graceful shutdown on context cancellation.

# Overview

The tree has three layers:

	RootSupervisor ("trackerd")
	├── IngestSupervisor ("ingest-layer")
	│   └── UDP listener (which also feeds the legacy raw log)
	├── WorkersSupervisor ("workers-layer")
	│   └── summary, compressor and midnight workers, each covering every event
	└── APISupervisor ("api-layer")
	    └── admin/manager/public HTTP server

This hierarchy ensures that a panicking background worker never takes down
ingest or the HTTP API, and that a crashed ingest listener doesn't prevent
the admin surface from serving /metrics or /api/v1/health.

# Key Features

Automatic Restart — crashed services restart with exponential backoff;
configurable failure thresholds and decay rates bound restart storms.

Failure Isolation — each layer counts failures independently; a child
supervisor's failures don't propagate to its siblings.

Graceful Shutdown — context cancellation triggers orderly shutdown with a
configurable per-service timeout; UnstoppedServiceReport surfaces hangs.

Structured Logging — sutureslog bridges suture's EventHook to slog, so
service starts/stops/restarts show up in the same log stream as everything
else.

# Usage Example

	logger := slog.Default()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddIngestService(udpListener)
	tree.AddWorkerService(summaryWorker)
	tree.AddAPIService(httpServer)

	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Configuration

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,
	    FailureDecay:     30.0,
	    FailureBackoff:   15 * time.Second,
	    ShutdownTimeout:  10 * time.Second,
	}

Defaults match suture's own production defaults.

# Service Interface

Every supervised unit implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil means the service stopped cleanly and will not be restarted;
returning an error means it crashed and suture restarts it (subject to the
backoff policy); the context being canceled means shutdown was requested
and Serve should return promptly.

The workers layer holds three services added once at startup; each walks
every event with a live tracker on each tick, so an event created at
runtime is covered without adding services. RemoveWorkerService removes a
worker service by its token.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service did not stop: %v", svc)
	}

# See Also

  - github.com/thejerf/suture/v4: underlying supervision library
  - internal/workers: the three worker services added to the workers layer
  - internal/ingest: the listener added to the ingest layer
*/
package supervisor
