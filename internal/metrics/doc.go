// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package metrics provides Prometheus metrics collection and export for trackerd.

# Metrics Endpoint

Metrics are exposed at GET /metrics on the admin HTTP surface in Prometheus
text format, via promhttp.Handler():

	curl http://localhost:8080/metrics

# Available Metrics

Ingest:
  - trackerd_ingest_packets_total{transport,result}
  - trackerd_ingest_auth_failures_total{event_id}
  - trackerd_ingest_processing_duration_seconds{transport}

Rate limiter:
  - trackerd_rate_limit_blocks_total{event_id}
  - trackerd_rate_limit_tracked_ips

Tracker / storage:
  - trackerd_tracker_active_total
  - trackerd_tracker_snapshot_writes_total{event_id,result}
  - trackerd_tracker_log_appends_total{event_id}
  - trackerd_tracker_log_rotations_total{event_id}

Background workers:
  - trackerd_worker_tick_duration_seconds{worker,event_id}
  - trackerd_worker_tick_errors_total{worker,event_id}
  - trackerd_compressor_files_compressed_total{event_id}

HTTP API:
  - trackerd_api_requests_total{method,route,status_code}
  - trackerd_api_request_duration_seconds{method,route}
  - trackerd_api_active_requests

System:
  - trackerd_app_info{version,go_version}
  - trackerd_app_uptime_seconds

# Usage

	http.Handle("/metrics", promhttp.Handler())

Recording happens at the call sites that already know the outcome — the
ingest router calls RecordIngestPacket after duplicate suppression, the
HTTP middleware calls RecordAPIRequest after the handler returns, and the
background workers call RecordWorkerTick once per event they process on a
tick (the midnight clearer only for an event it clears), regardless of
success or failure.
*/
package metrics
