// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tracker implements the Event Tracker: per-event runtime state
// (live positions, daily log, course, user overrides) and the Manager
// that owns one Tracker per active event.
package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/storage"
)

// Tracker is the per-event runtime: live position table, last-seen
// timestamp table, daily logger, user overrides, and course file handle.
// Created lazily on first use of an event id; closed only at shutdown.
type Tracker struct {
	mu sync.Mutex

	eventID  int
	eventDir string
	now      func() time.Time
	logger   zerolog.Logger

	live      map[string]model.LiveEntry
	lastTS    map[string]int64
	overrides map[string]model.Override

	dailyLog       *storage.DailyLog
	positionsPath  string
	coursePath     string
	usersPath      string
}

// New constructs a Tracker rooted at eventDir, using loc to compute "today"
// for the daily log. It loads the positions snapshot (if present) to seed
// the live table and last-timestamp table, preserving duplicate detection
// across restarts, and loads any persisted user overrides.
func New(eventID int, eventDir string, loc *time.Location, now func() time.Time, logger zerolog.Logger) (*Tracker, error) {
	if now == nil {
		now = time.Now
	}
	logsDir := filepath.Join(eventDir, "logs")
	dailyLog, err := storage.NewDailyLog(logsDir, loc, now, logger)
	if err != nil {
		return nil, fmt.Errorf("tracker: init daily log for event %d: %w", eventID, err)
	}

	t := &Tracker{
		eventID:       eventID,
		eventDir:      eventDir,
		now:           now,
		logger:        logger.With().Int("event_id", eventID).Logger(),
		live:          make(map[string]model.LiveEntry),
		lastTS:        make(map[string]int64),
		overrides:     make(map[string]model.Override),
		dailyLog:      dailyLog,
		positionsPath: filepath.Join(eventDir, "current_positions.json"),
		coursePath:    filepath.Join(eventDir, "course.json"),
		usersPath:     filepath.Join(eventDir, "users.json"),
	}

	var snapshot model.PositionsSnapshot
	if err := storage.ReadJSON(t.positionsPath, &snapshot); err == nil {
		for id, entry := range snapshot.Sailors {
			t.live[id] = entry
			t.lastTS[id] = entry.TS
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("tracker: load positions snapshot for event %d: %w", eventID, err)
	}

	var users model.OverrideTable
	if err := storage.ReadJSON(t.usersPath, &users); err == nil {
		t.overrides = users.Users
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("tracker: load user overrides for event %d: %w", eventID, err)
	}
	if t.overrides == nil {
		t.overrides = make(map[string]model.Override)
	}

	return t, nil
}

// Process applies one sanitized report: batch entries are always logged
// (even when their final sample is a duplicate), duplicate suppression
// uses a non-decreasing per-tracker timestamp, and the positions snapshot
// is rewritten only when the report advances the watermark.
//
// Returns true if the report was a duplicate (live state untouched). The
// caller (the ingest router) uses this only for metrics; an ACK is sent
// regardless.
func (t *Tracker) Process(r model.Report, sourceIP string) (bool, error) {
	sample := r.LastSample()
	recvTS := t.now().Unix()

	if r.IsBatch() {
		entry := model.LogEntry{
			TrackerID:    r.TrackerID,
			TS:           sample.TS,
			RecvTS:       recvTS,
			Lat:          sample.Lat,
			Lon:          sample.Lon,
			Speed:        sample.Speed,
			Heading:      r.Heading,
			Battery:      r.Battery,
			Signal:       r.Signal,
			HeartRate:    r.HeartRate,
			BatteryDrain: r.BatteryDrain,
			Accuracy:     r.Accuracy,
			Role:         r.Role,
			OS:           r.OS,
			Version:      r.Version,
			Flags:        r.Flags,
			SourceIP:     sourceIP,
			Pos:          r.Pos,
		}
		if err := t.appendLog(entry); err != nil {
			return false, err
		}
	}

	t.mu.Lock()
	last, seen := t.lastTS[r.TrackerID]
	duplicate := seen && sample.TS <= last
	if !duplicate {
		t.lastTS[r.TrackerID] = sample.TS
		entry := model.LiveEntry{
			Lat:          sample.Lat,
			Lon:          sample.Lon,
			Speed:        sample.Speed,
			Heading:      r.Heading,
			Battery:      r.Battery,
			Signal:       r.Signal,
			HeartRate:    r.HeartRate,
			BatteryDrain: r.BatteryDrain,
			Accuracy:     r.Accuracy,
			Role:         r.Role,
			OS:           r.OS,
			Version:      r.Version,
			Flags:        r.Flags,
			TS:           sample.TS,
			RecvTS:       recvTS,
			SourceIP:     sourceIP,
		}
		t.live[r.TrackerID] = entry
	}
	t.mu.Unlock()

	if !duplicate {
		if err := t.publishSnapshot(); err != nil {
			return duplicate, err
		}
		if !r.IsBatch() {
			entry := model.LogEntry{
				TrackerID:    r.TrackerID,
				TS:           sample.TS,
				RecvTS:       recvTS,
				Lat:          sample.Lat,
				Lon:          sample.Lon,
				Speed:        sample.Speed,
				Heading:      r.Heading,
				Battery:      r.Battery,
				Signal:       r.Signal,
				HeartRate:    r.HeartRate,
				BatteryDrain: r.BatteryDrain,
				Accuracy:     r.Accuracy,
				Role:         r.Role,
				OS:           r.OS,
				Version:      r.Version,
				Flags:        r.Flags,
				SourceIP:     sourceIP,
			}
			if err := t.appendLog(entry); err != nil {
				return duplicate, err
			}
		}
	}

	t.logger.Info().
		Str("tracker_id", r.TrackerID).
		Bool("duplicate", duplicate).
		Float64("lat", sample.Lat).
		Float64("lon", sample.Lon).
		Msg("position report processed")

	if r.Assist {
		t.logger.Warn().
			Str("tracker_id", r.TrackerID).
			Float64("lat", sample.Lat).
			Float64("lon", sample.Lon).
			Msg("!!! ASSISTANCE REQUESTED !!!")
	}

	return duplicate, nil
}

func (t *Tracker) appendLog(entry model.LogEntry) error {
	line, err := storage.MarshalLogLine(entry)
	if err != nil {
		return fmt.Errorf("tracker: marshal log entry for event %d: %w", t.eventID, err)
	}
	return t.dailyLog.Append(line)
}

// publishSnapshot rewrites current_positions.json from the in-memory live table,
// applying user overrides for display (overrides never mutate stored
// telemetry, only the name/role/hidden fields seen by readers).
func (t *Tracker) publishSnapshot() error {
	t.mu.Lock()
	sailors := make(map[string]model.LiveEntry, len(t.live))
	for id, entry := range t.live {
		if ov, ok := t.overrides[id]; ok {
			if ov.Name != nil {
				entry.Name = *ov.Name
			}
			if ov.Role != nil {
				entry.Role = *ov.Role
			}
			if ov.Hidden != nil {
				entry.Hidden = *ov.Hidden
			}
		}
		sailors[id] = entry
	}
	t.mu.Unlock()

	now := t.now()
	snapshot := model.PositionsSnapshot{
		Updated:    now.Unix(),
		UpdatedISO: now.UTC().Format(time.RFC3339),
		Sailors:    sailors,
	}
	return storage.WriteJSON(t.positionsPath, snapshot, false)
}

// ClearTracks rotates today's log file, deletes the positions file, clears
// the live and last-timestamp tables, then republishes an empty snapshot.
// Rotated log files remain browsable.
func (t *Tracker) ClearTracks() error {
	if _, err := t.dailyLog.RotateToday(); err != nil {
		return fmt.Errorf("tracker: rotate today's log for event %d: %w", t.eventID, err)
	}

	t.mu.Lock()
	t.live = make(map[string]model.LiveEntry)
	t.lastTS = make(map[string]int64)
	t.mu.Unlock()

	if err := os.Remove(t.positionsPath); err != nil && !os.IsNotExist(err) {
		t.logger.Warn().Err(err).Msg("tracker: failed to remove positions file during clear")
	}

	return t.publishSnapshot()
}

// SetOverride upserts the display override for trackerID, persists the
// override table, and republishes the positions snapshot.
func (t *Tracker) SetOverride(trackerID string, override model.Override) error {
	t.mu.Lock()
	t.overrides[trackerID] = override
	t.mu.Unlock()

	if err := t.persistOverrides(); err != nil {
		return err
	}
	return t.publishSnapshot()
}

// RemoveOverride removes the display override for trackerID, if present.
func (t *Tracker) RemoveOverride(trackerID string) error {
	t.mu.Lock()
	delete(t.overrides, trackerID)
	t.mu.Unlock()

	if err := t.persistOverrides(); err != nil {
		return err
	}
	return t.publishSnapshot()
}

// Overrides returns a snapshot copy of the current override table.
func (t *Tracker) Overrides() map[string]model.Override {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]model.Override, len(t.overrides))
	for k, v := range t.overrides {
		out[k] = v
	}
	return out
}

func (t *Tracker) persistOverrides() error {
	t.mu.Lock()
	users := make(map[string]model.Override, len(t.overrides))
	for k, v := range t.overrides {
		users[k] = v
	}
	t.mu.Unlock()

	now := t.now()
	doc := model.OverrideTable{
		Updated:    now.Unix(),
		UpdatedISO: now.UTC().Format(time.RFC3339),
		Users:      users,
	}
	return storage.WriteJSON(t.usersPath, doc, true)
}

// SaveCourse rotates any existing course file, stamps the new course with
// an updated timestamp, and writes it atomically.
func (t *Tracker) SaveCourse(course model.Course) error {
	if _, err := storage.Rotate(t.coursePath); err != nil {
		return fmt.Errorf("tracker: rotate course for event %d: %w", t.eventID, err)
	}
	now := t.now()
	course.Updated = now.Unix()
	course.UpdatedISO = now.UTC().Format(time.RFC3339)
	return storage.WriteJSON(t.coursePath, course, true)
}

// DeleteCourse rotates away the current course file, if any.
func (t *Tracker) DeleteCourse() error {
	_, err := storage.Rotate(t.coursePath)
	if err != nil {
		return fmt.Errorf("tracker: delete (rotate) course for event %d: %w", t.eventID, err)
	}
	return nil
}

// Course reads the current course file, if any.
func (t *Tracker) Course() (model.Course, error) {
	var course model.Course
	err := storage.ReadJSON(t.coursePath, &course)
	return course, err
}

// LogDir returns the directory containing this event's daily log files.
func (t *Tracker) LogDir() string {
	return filepath.Join(t.eventDir, "logs")
}

// CoursePath returns the path of this event's current course file.
func (t *Tracker) CoursePath() string {
	return t.coursePath
}

// Close flushes and closes the daily log handle.
func (t *Tracker) Close() error {
	return t.dailyLog.Close()
}
