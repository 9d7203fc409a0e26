// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/storage"
)

func newTestTracker(t *testing.T) (*Tracker, string) {
	t.Helper()
	dir := t.TempDir()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	tr, err := New(1, dir, time.UTC, func() time.Time { return now }, zerolog.Nop())
	require.NoError(t, err)
	return tr, dir
}

func TestTracker_FirstReportUpdatesLiveTable(t *testing.T) {
	tr, dir := newTestTracker(t)

	dup, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 10, Lon: 20, Role: model.RoleSailor}, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, dup)

	var snap model.PositionsSnapshot
	require.NoError(t, storage.ReadJSON(filepath.Join(dir, "current_positions.json"), &snap))
	require.Contains(t, snap.Sailors, "T1")
	assert.Equal(t, 10.0, snap.Sailors["T1"].Lat)
}

func TestTracker_DuplicateTimestampDoesNotUpdateLiveState(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 10, Lon: 20}, "")
	require.NoError(t, err)

	dup, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 11, Lon: 21}, "")
	require.NoError(t, err)
	assert.True(t, dup)

	entry, ok := tr.live["T1"]
	require.True(t, ok)
	assert.Equal(t, 10.0, entry.Lat, "duplicate must not overwrite live state")
}

func TestTracker_AdvancingTimestampUpdatesLiveState(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 10, Lon: 20}, "")
	require.NoError(t, err)
	dup, err := tr.Process(model.Report{TrackerID: "T1", TS: 1001, Lat: 11, Lon: 21}, "")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, 11.0, tr.live["T1"].Lat)
}

func TestTracker_BatchAlwaysLogsEvenIfFinalSampleIsDuplicate(t *testing.T) {
	tr, dir := newTestTracker(t)

	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 5000, Lat: 1, Lon: 2}, "")
	require.NoError(t, err)

	_, err = tr.Process(model.Report{
		TrackerID: "T1",
		Pos: []model.Sample{
			{TS: 4000, Lat: 0.5, Lon: 0.6},
			{TS: 5000, Lat: 1, Lon: 2},
		},
	}, "")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "2026_03_05.jsonl"))
	require.NoError(t, err)
	lines := splitLines(string(data))
	require.Len(t, lines, 2, "single-sample entry plus batch entry, both logged")
}

func TestTracker_BatchLogsExactlyOneLineWithFullPosArray(t *testing.T) {
	tr, dir := newTestTracker(t)

	_, err := tr.Process(model.Report{
		TrackerID: "T2",
		Pos: []model.Sample{
			{TS: 2000, Lat: 1.0, Lon: 2.0},
			{TS: 2001, Lat: 1.01, Lon: 2.01},
			{TS: 2002, Lat: 1.02, Lon: 2.02},
		},
	}, "")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "2026_03_05.jsonl"))
	require.NoError(t, err)
	lines := splitLines(string(data))
	require.Len(t, lines, 1)

	var snap model.PositionsSnapshot
	require.NoError(t, storage.ReadJSON(filepath.Join(dir, "current_positions.json"), &snap))
	assert.Equal(t, 1.02, snap.Sailors["T2"].Lat)
}

func TestTracker_ClearTracksRotatesAndEmptiesState(t *testing.T) {
	tr, dir := newTestTracker(t)
	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 1, Lon: 2}, "")
	require.NoError(t, err)

	require.NoError(t, tr.ClearTracks())

	_, err = os.Stat(filepath.Join(dir, "logs", "2026_03_05.jsonl.1"))
	assert.NoError(t, err, "rotated log should exist")

	var snap model.PositionsSnapshot
	require.NoError(t, storage.ReadJSON(filepath.Join(dir, "current_positions.json"), &snap))
	assert.Empty(t, snap.Sailors)
}

func TestTracker_SetOverrideAppliedAtPublicationNotStoredState(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 1, Lon: 2, Role: model.RoleSailor}, "")
	require.NoError(t, err)

	name := "Skipper"
	require.NoError(t, tr.SetOverride("T1", model.Override{Name: &name}))

	var snap model.PositionsSnapshot
	require.NoError(t, storage.ReadJSON(tr.positionsPath, &snap))
	assert.Equal(t, "Skipper", snap.Sailors["T1"].Name)

	tr.mu.Lock()
	stored := tr.live["T1"]
	tr.mu.Unlock()
	assert.Empty(t, stored.Name, "override must not mutate stored live entry")
}

func TestTracker_RemoveOverride(t *testing.T) {
	tr, _ := newTestTracker(t)
	name := "X"
	require.NoError(t, tr.SetOverride("T1", model.Override{Name: &name}))
	require.NoError(t, tr.RemoveOverride("T1"))
	assert.NotContains(t, tr.Overrides(), "T1")
}

func TestTracker_SaveCourseRotatesPrior(t *testing.T) {
	tr, dir := newTestTracker(t)
	require.NoError(t, tr.SaveCourse(model.Course{Marks: []model.Mark{{Lat: 1, Lon: 1}}}))
	require.NoError(t, tr.SaveCourse(model.Course{Marks: []model.Mark{{Lat: 2, Lon: 2, Color: "#ff0000"}}}))

	_, err := os.Stat(filepath.Join(dir, "course.json.1"))
	assert.NoError(t, err)

	got, err := tr.Course()
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Marks[0].Lat)
}

func TestTracker_DeleteCourseRotatesAway(t *testing.T) {
	tr, dir := newTestTracker(t)
	require.NoError(t, tr.SaveCourse(model.Course{Marks: []model.Mark{{Lat: 1, Lon: 1}}}))
	require.NoError(t, tr.DeleteCourse())

	_, err := os.Stat(filepath.Join(dir, "course.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "course.json.1"))
	assert.NoError(t, err)
}

func TestTracker_CrashRecoverySeedsLastTimestampFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tr1, err := New(1, dir, time.UTC, clock, zerolog.Nop())
	require.NoError(t, err)
	_, err = tr1.Process(model.Report{TrackerID: "T1", TS: 9000, Lat: 1, Lon: 2}, "")
	require.NoError(t, err)

	tr2, err := New(1, dir, time.UTC, clock, zerolog.Nop())
	require.NoError(t, err)

	dup, err := tr2.Process(model.Report{TrackerID: "T1", TS: 9000, Lat: 9, Lon: 9}, "")
	require.NoError(t, err)
	assert.True(t, dup, "same ts as before restart must be treated as duplicate")
}

func TestTracker_IsolationBetweenEvents(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	trA, err := New(1, dirA, time.UTC, clock, zerolog.Nop())
	require.NoError(t, err)
	trB, err := New(2, dirB, time.UTC, clock, zerolog.Nop())
	require.NoError(t, err)

	_, err = trA.Process(model.Report{TrackerID: "T1", TS: 1000, Lat: 1, Lon: 1}, "")
	require.NoError(t, err)

	var snapB model.PositionsSnapshot
	err = storage.ReadJSON(filepath.Join(dirB, "current_positions.json"), &snapB)
	assert.True(t, os.IsNotExist(err), "event B must be untouched by event A's report")
	_ = trB
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
