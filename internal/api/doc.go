// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements trackerd's admin HTTP surface: the public event
// list and course read, per-event admin endpoints gated by that event's
// admin password, manager endpoints gated by the global manager
// password, the Prometheus /metrics endpoint, liveness/readiness probes,
// and static file serving for an operator-supplied web UI. It also
// mounts the ingest package's tracker/OwnTracks HTTP handlers so a
// single listener serves both telemetry ingest and the admin surface.
package api
