// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngestPacket(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		result    string
	}{
		{"accepted UDP packet", "udp", "accepted"},
		{"duplicate UDP packet", "udp", "duplicate"},
		{"rejected HTTP packet", "http", "rejected"},
		{"accepted OwnTracks beacon", "owntracks", "accepted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordIngestPacket(tt.transport, tt.result)
		})
	}
}

func TestRecordIngestAuthFailure(t *testing.T) {
	RecordIngestAuthFailure("1")
	RecordIngestAuthFailure("42")
}

func TestRecordIngestDuration(t *testing.T) {
	durations := []time.Duration{
		100 * time.Microsecond,
		5 * time.Millisecond,
		50 * time.Millisecond,
	}
	for _, d := range durations {
		RecordIngestDuration("udp", d)
	}
}

func TestRecordRateLimitBlock(t *testing.T) {
	RecordRateLimitBlock("1")
	RecordRateLimitBlock("")
}

func TestSetRateLimitTrackedIPs(t *testing.T) {
	SetRateLimitTrackedIPs(0)
	SetRateLimitTrackedIPs(500)
}

func TestSetTrackerActiveCount(t *testing.T) {
	SetTrackerActiveCount(0)
	SetTrackerActiveCount(12)
}

func TestRecordSnapshotWrite(t *testing.T) {
	RecordSnapshotWrite("1", nil)
	RecordSnapshotWrite("1", errors.New("disk full"))
}

func TestRecordLogAppend(t *testing.T) {
	RecordLogAppend("1")
}

func TestRecordLogRotation(t *testing.T) {
	RecordLogRotation("1")
}

func TestRecordWorkerTick(t *testing.T) {
	tests := []struct {
		name   string
		worker string
		err    error
	}{
		{"successful summary tick", "summary", nil},
		{"failed compressor tick", "compressor", errors.New("gzip: write failed")},
		{"successful midnight tick", "midnight", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordWorkerTick(tt.worker, "1", 10*time.Millisecond, tt.err)
		})
	}
}

func TestRecordCompressorFile(t *testing.T) {
	RecordCompressorFile("1")
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		route      string
		statusCode string
		duration   time.Duration
	}{
		{"successful GET report", "GET", "/api/v1/events/1/report", "200", 5 * time.Millisecond},
		{"unauthorized manager action", "POST", "/api/v1/events/1/archive", "401", 1 * time.Millisecond},
		{"not found", "GET", "/api/v1/events/99/report", "404", 500 * time.Microsecond},
		{"rate limited ingest", "POST", "/api/tracker", "429", 200 * time.Microsecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAPIRequest(tt.method, tt.route, tt.statusCode, tt.duration)
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	TrackActiveRequest(true)
	TrackActiveRequest(false)
}

func TestTrackActiveRequest_Lifecycle(t *testing.T) {
	for i := 0; i < 10; i++ {
		TrackActiveRequest(true)
	}
	for i := 0; i < 10; i++ {
		TrackActiveRequest(false)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	const goroutines = 50
	const perGoroutine = 50

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				RecordIngestPacket("udp", "accepted")
				RecordAPIRequest("GET", "/api/v1/events/1/report", "200", time.Duration(j)*time.Millisecond)
				RecordWorkerTick("summary", "1", time.Millisecond, nil)
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		IngestPacketsTotal,
		IngestAuthFailuresTotal,
		IngestProcessingDuration,
		RateLimitBlocksTotal,
		RateLimitTrackedIPs,
		TrackerActiveCount,
		TrackerSnapshotWrites,
		TrackerLogAppends,
		TrackerLogRotations,
		WorkerTickDuration,
		WorkerTickErrors,
		CompressorFilesCompressed,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		AppInfo,
		AppUptime,
	}

	for _, c := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		c.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric has no descriptors: %T", c)
		}
	}
}

func TestMetricGathering(t *testing.T) {
	RecordIngestPacket("udp", "accepted")
	RecordAPIRequest("GET", "/api/v1/events/1/report", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordIngestPacket(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordIngestPacket("udp", "accepted")
	}
}

func BenchmarkRecordAPIRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAPIRequest("GET", "/api/v1/events/1/report", "200", 5*time.Millisecond)
	}
}

func BenchmarkTrackActiveRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TrackActiveRequest(true)
		TrackActiveRequest(false)
	}
}
