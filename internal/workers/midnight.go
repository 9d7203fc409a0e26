// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/metrics"
	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/tracker"
)

// DefaultMidnightInterval is the default period between midnight-rollover checks.
const DefaultMidnightInterval = 60 * time.Second

// MidnightClearer rotates each active event's live state once per local
// day, at midnight in the event's own timezone. The check window is
// widened to 2x the tick interval so a delayed tick (GC pause, scheduler
// jitter) cannot skip the day it was meant to catch; a per-event
// last-cleared-date table makes the clear idempotent within the window.
type MidnightClearer struct {
	interval time.Duration
	trackers *tracker.Manager
	reg      registry.Registry
	now      func() time.Time
	logger   zerolog.Logger

	mu          sync.Mutex
	lastCleared map[int]string
}

// NewMidnightClearer constructs a MidnightClearer ticking every interval
// (DefaultMidnightInterval when zero).
func NewMidnightClearer(trackers *tracker.Manager, reg registry.Registry, interval time.Duration, now func() time.Time, logger zerolog.Logger) *MidnightClearer {
	if interval <= 0 {
		interval = DefaultMidnightInterval
	}
	if now == nil {
		now = time.Now
	}
	return &MidnightClearer{
		interval:    interval,
		trackers:    trackers,
		reg:         reg,
		now:         now,
		logger:      logger.With().Str("worker", "midnight").Logger(),
		lastCleared: make(map[int]string),
	}
}

// Serve implements suture.Service.
func (m *MidnightClearer) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *MidnightClearer) tick() {
	window := 2 * m.interval
	for _, eid := range m.trackers.EventIDs() {
		t, ok := m.trackers.Get(eid)
		if !ok {
			continue
		}
		ev, err := m.reg.Get(eid)
		if err != nil {
			continue
		}
		loc, err := time.LoadLocation(ev.Timezone)
		if err != nil {
			loc = time.UTC
		}

		local := m.now().In(loc)
		today := local.Format("2006-01-02")
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		sinceMidnight := local.Sub(midnight)
		if sinceMidnight < 0 || sinceMidnight >= window {
			continue
		}

		m.mu.Lock()
		already := m.lastCleared[eid] == today
		if !already {
			m.lastCleared[eid] = today
		}
		m.mu.Unlock()
		if already {
			continue
		}

		start := m.now()
		err = t.ClearTracks()
		metrics.RecordWorkerTick("midnight", fmt.Sprintf("%d", eid), m.now().Sub(start), err)
		if err != nil {
			m.logger.Warn().Err(err).Int("event_id", eid).Msg("midnight: clear failed")
		} else {
			m.logger.Info().Int("event_id", eid).Str("date", today).Msg("midnight: cleared live state")
		}
	}
}
