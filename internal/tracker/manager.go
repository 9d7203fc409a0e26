// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/registry"
)

// Manager owns the eid -> *Tracker map. Get-or-create is idempotent; once
// created a Tracker is never removed, matching spec.md's per-event
// runtime lifecycle ("closed only at shutdown").
type Manager struct {
	mu       sync.Mutex
	dataRoot string
	reg      registry.Registry
	now      func() time.Time
	logger   zerolog.Logger

	trackers map[int]*Tracker
}

// NewManager constructs a Manager rooted at dataRoot, resolving event
// timezones through reg.
func NewManager(dataRoot string, reg registry.Registry, now func() time.Time, logger zerolog.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		dataRoot: dataRoot,
		reg:      reg,
		now:      now,
		logger:   logger,
		trackers: make(map[int]*Tracker),
	}
}

// GetOrCreate returns the Tracker for eid, creating it lazily on first use.
func (m *Manager) GetOrCreate(eid int) (*Tracker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.trackers[eid]; ok {
		return t, nil
	}

	ev, err := m.reg.Get(eid)
	if err != nil {
		return nil, fmt.Errorf("tracker: resolve event %d: %w", eid, err)
	}
	loc, err := time.LoadLocation(ev.Timezone)
	if err != nil {
		loc = time.UTC
		m.logger.Warn().Str("timezone", ev.Timezone).Int("event_id", eid).
			Msg("tracker: unknown timezone, falling back to UTC")
	}

	eventDir := registry.EventDir(m.dataRoot, eid)
	t, err := New(eid, eventDir, loc, m.now, m.logger)
	if err != nil {
		return nil, err
	}
	m.trackers[eid] = t
	return t, nil
}

// Get returns the Tracker for eid if it has already been created.
func (m *Manager) Get(eid int) (*Tracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[eid]
	return t, ok
}

// EventIDs returns the ids of every event with a live Tracker.
func (m *Manager) EventIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.trackers))
	for id := range m.trackers {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes every Tracker's daily log handle; called at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.trackers {
		if err := t.Close(); err != nil {
			m.logger.Warn().Err(err).Int("event_id", id).Msg("tracker: error closing daily log on shutdown")
		}
	}
}
