// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package workers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/cache"
	"github.com/windtrace/trackerd/internal/metrics"
	"github.com/windtrace/trackerd/internal/storage"
	"github.com/windtrace/trackerd/internal/tracker"
)

// DefaultCompressorInterval is the default period between compression sweeps.
const DefaultCompressorInterval = 10 * time.Second

// DefaultLiveWindow is the default span of recent history kept in the
// live (small) compressed view, alongside the full compressed view of
// the entire day.
const DefaultLiveWindow = 20 * time.Minute

// compressorCacheCapacity bounds the mtime cache; one entry per log file
// actively being compressed is expected to stay well under this.
const compressorCacheCapacity = 10000

// Compressor republishes gzip-compressed live and full views of each
// active event's daily log files, skipping any file whose modification
// time it has already compressed (tracked via an in-memory TimeCache so
// an idle log costs nothing on subsequent ticks).
type Compressor struct {
	interval   time.Duration
	liveWindow time.Duration
	trackers   *tracker.Manager
	seen       cache.TimeCache
	now        func() time.Time
	logger     zerolog.Logger
}

// NewCompressor constructs a Compressor ticking every interval
// (DefaultCompressorInterval when zero) with the given live window
// (DefaultLiveWindow when zero).
func NewCompressor(trackers *tracker.Manager, interval, liveWindow time.Duration, now func() time.Time, logger zerolog.Logger) *Compressor {
	if interval <= 0 {
		interval = DefaultCompressorInterval
	}
	if liveWindow <= 0 {
		liveWindow = DefaultLiveWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Compressor{
		interval:   interval,
		liveWindow: liveWindow,
		trackers:   trackers,
		seen:       cache.NewLRUCache(compressorCacheCapacity, 24*time.Hour),
		now:        now,
		logger:     logger.With().Str("worker", "compressor").Logger(),
	}
}

// Serve implements suture.Service.
func (c *Compressor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Compressor) tick() {
	for _, eid := range c.trackers.EventIDs() {
		t, ok := c.trackers.Get(eid)
		if !ok {
			continue
		}
		start := c.now()
		n, err := c.compressEvent(eid, t)
		metrics.RecordWorkerTick("compressor", fmt.Sprintf("%d", eid), c.now().Sub(start), err)
		if err != nil {
			c.logger.Warn().Err(err).Int("event_id", eid).Msg("compressor: sweep failed")
			continue
		}
		for i := 0; i < n; i++ {
			metrics.RecordCompressorFile(fmt.Sprintf("%d", eid))
		}
	}
}

func (c *Compressor) compressEvent(eid int, t *tracker.Tracker) (int, error) {
	logDir := t.LogDir()
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("workers: read log dir %s: %w", logDir, err)
	}

	compressedDir := filepath.Join(filepath.Dir(logDir), "compressed")
	compressed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		logPath := filepath.Join(logDir, entry.Name())
		info, err := os.Stat(logPath)
		if err != nil {
			continue
		}

		cacheKey := fmt.Sprintf("%d:%s", eid, entry.Name())
		if last, ok := c.seen.Get(cacheKey); ok && !info.ModTime().After(last) {
			continue
		}

		date := strings.TrimSuffix(entry.Name(), ".jsonl")
		livePath := filepath.Join(compressedDir, date+".live.jsonl.gz")
		fullPath := filepath.Join(compressedDir, date+".full.jsonl.gz")
		if err := storage.WriteCompressedViews(logPath, livePath, fullPath, c.liveWindow, c.now()); err != nil {
			return compressed, fmt.Errorf("workers: compress %s: %w", logPath, err)
		}
		c.seen.Add(cacheKey, info.ModTime())
		compressed++
	}
	return compressed, nil
}
