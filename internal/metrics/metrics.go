// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for trackerd's ingest, storage, and HTTP surfaces.

var (
	// Ingest Metrics
	IngestPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_ingest_packets_total",
			Help: "Total number of position reports received",
		},
		[]string{"transport", "result"}, // transport: "udp", "http", "owntracks"; result: "ok", "duplicate", "auth_check", "unknown_event", "archived_event", "rate_limited", "auth_failed", "tracker_error", "process_error"
	)

	IngestAuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_ingest_auth_failures_total",
			Help: "Total number of position reports rejected for a bad tracker password",
		},
		[]string{"event_id"},
	)

	IngestProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackerd_ingest_processing_duration_seconds",
			Help:    "Duration of processing a single position report end-to-end",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	// Rate Limiter Metrics
	RateLimitBlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_rate_limit_blocks_total",
			Help: "Total number of requests rejected because the source IP is within the post-failure block window",
		},
		[]string{"event_id"},
	)

	RateLimitTrackedIPs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackerd_rate_limit_tracked_ips",
			Help: "Current number of IP addresses tracked by the rate limiter",
		},
	)

	// Tracker / Storage Metrics
	TrackerActiveCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackerd_tracker_active_total",
			Help: "Current number of non-archived event trackers held in memory",
		},
	)

	TrackerSnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_tracker_snapshot_writes_total",
			Help: "Total number of atomic positions-snapshot writes",
		},
		[]string{"event_id", "result"}, // result: "ok", "error"
	)

	TrackerLogAppends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_tracker_log_appends_total",
			Help: "Total number of daily-log JSONL lines appended",
		},
		[]string{"event_id"},
	)

	TrackerLogRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_tracker_log_rotations_total",
			Help: "Total number of log file rotations performed",
		},
		[]string{"event_id"},
	)

	// Background Worker Metrics
	WorkerTickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackerd_worker_tick_duration_seconds",
			Help:    "Duration of a single background worker tick",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"worker", "event_id"}, // worker: "summary", "compressor", "midnight"
	)

	WorkerTickErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_worker_tick_errors_total",
			Help: "Total number of background worker ticks that returned an error",
		},
		[]string{"worker", "event_id"},
	)

	CompressorFilesCompressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_compressor_files_compressed_total",
			Help: "Total number of log files gzip-compressed by the compressor worker",
		},
		[]string{"event_id"},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackerd_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackerd_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackerd_api_active_requests",
			Help: "Current number of in-flight HTTP API requests",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trackerd_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackerd_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordIngestPacket records a single position report outcome.
func RecordIngestPacket(transport, result string) {
	IngestPacketsTotal.WithLabelValues(transport, result).Inc()
}

// RecordIngestAuthFailure records a rejected tracker password for an event.
func RecordIngestAuthFailure(eventID string) {
	IngestAuthFailuresTotal.WithLabelValues(eventID).Inc()
}

// RecordIngestDuration records how long a single report took to process.
func RecordIngestDuration(transport string, d time.Duration) {
	IngestProcessingDuration.WithLabelValues(transport).Observe(d.Seconds())
}

// RecordRateLimitBlock records a request rejected by the rate limiter.
func RecordRateLimitBlock(eventID string) {
	RateLimitBlocksTotal.WithLabelValues(eventID).Inc()
}

// SetRateLimitTrackedIPs sets the current rate-limiter cache size.
func SetRateLimitTrackedIPs(count int) {
	RateLimitTrackedIPs.Set(float64(count))
}

// SetTrackerActiveCount sets the current number of in-memory trackers.
func SetTrackerActiveCount(count int) {
	TrackerActiveCount.Set(float64(count))
}

// RecordSnapshotWrite records an attempted positions-snapshot write.
func RecordSnapshotWrite(eventID string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TrackerSnapshotWrites.WithLabelValues(eventID, result).Inc()
}

// RecordLogAppend records a daily-log append for an event.
func RecordLogAppend(eventID string) {
	TrackerLogAppends.WithLabelValues(eventID).Inc()
}

// RecordLogRotation records a log rotation for an event.
func RecordLogRotation(eventID string) {
	TrackerLogRotations.WithLabelValues(eventID).Inc()
}

// RecordWorkerTick records the duration and outcome of a background worker tick.
func RecordWorkerTick(worker, eventID string, d time.Duration, err error) {
	WorkerTickDuration.WithLabelValues(worker, eventID).Observe(d.Seconds())
	if err != nil {
		WorkerTickErrors.WithLabelValues(worker, eventID).Inc()
	}
}

// RecordCompressorFile records a file compressed by the compressor worker.
func RecordCompressorFile(eventID string) {
	CompressorFilesCompressed.WithLabelValues(eventID).Inc()
}

// RecordAPIRequest records an HTTP API request metric.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight API request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
