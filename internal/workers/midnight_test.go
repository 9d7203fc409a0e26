// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package workers

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windtrace/trackerd/internal/model"
)

func TestMidnightClearer_ClearsWithinWindowAfterMidnight(t *testing.T) {
	cur := time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC)
	now := func() time.Time { return cur }
	mgr, reg, id, _ := newTestManager(t, now)
	tr, _ := mgr.Get(id)
	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 1, Lon: 1}, "1.2.3.4")
	require.NoError(t, err)

	m := NewMidnightClearer(mgr, reg, time.Minute, now, zerolog.Nop())

	cur = time.Date(2026, 3, 6, 0, 0, 30, 0, time.UTC)
	m.tick()

	// Live state was cleared, so the previously-duplicate timestamp is no
	// longer a duplicate.
	duplicate, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 2, Lon: 2}, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, duplicate)
}

func TestMidnightClearer_DoesNotDoubleClearSameDay(t *testing.T) {
	cur := time.Date(2026, 3, 6, 0, 0, 10, 0, time.UTC)
	now := func() time.Time { return cur }
	mgr, reg, id, _ := newTestManager(t, now)
	tr, _ := mgr.Get(id)

	m := NewMidnightClearer(mgr, reg, time.Minute, now, zerolog.Nop())
	m.tick()

	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 1, Lon: 1}, "1.2.3.4")
	require.NoError(t, err)

	cur = time.Date(2026, 3, 6, 0, 1, 30, 0, time.UTC)
	m.tick()

	// Still the same day and already cleared once: the second tick must
	// not clear again, so the duplicate timestamp is still recognized.
	duplicate, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 2, Lon: 2}, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, duplicate)
}

func TestMidnightClearer_OutsideWindowDoesNothing(t *testing.T) {
	cur := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return cur }
	mgr, reg, id, _ := newTestManager(t, now)
	tr, _ := mgr.Get(id)
	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 1, Lon: 1}, "1.2.3.4")
	require.NoError(t, err)

	m := NewMidnightClearer(mgr, reg, time.Minute, now, zerolog.Nop())
	m.tick()

	duplicate, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 2, Lon: 2}, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, duplicate)
}
