// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package workers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/metrics"
	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/storage"
	"github.com/windtrace/trackerd/internal/tracker"
)

// segmentName matches both a date's active log (YYYY_MM_DD.jsonl) and
// any of its rotated siblings (YYYY_MM_DD.jsonl.N), so a rotated day's
// earlier points aren't silently dropped from future regeneration.
var segmentName = regexp.MustCompile(`^(\d{4}_\d{2}_\d{2})\.jsonl(?:\.(\d+))?$`)

// DefaultSummaryInterval is the default period between summary sweeps.
const DefaultSummaryInterval = 60 * time.Second

// SummaryWorker regenerates each active event's per-day summary.json
// files whenever the corresponding log file is newer than the last
// summary, associating each day's segment with the course version in
// effect at the time (the course file with the greatest Updated
// timestamp not exceeding the segment's end_ts).
type SummaryWorker struct {
	interval time.Duration
	trackers *tracker.Manager
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSummaryWorker constructs a SummaryWorker ticking every interval
// (DefaultSummaryInterval when zero).
func NewSummaryWorker(trackers *tracker.Manager, interval time.Duration, now func() time.Time, logger zerolog.Logger) *SummaryWorker {
	if interval <= 0 {
		interval = DefaultSummaryInterval
	}
	if now == nil {
		now = time.Now
	}
	return &SummaryWorker{interval: interval, trackers: trackers, now: now, logger: logger.With().Str("worker", "summary").Logger()}
}

// Serve implements suture.Service.
func (w *SummaryWorker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *SummaryWorker) tick() {
	for _, eid := range w.trackers.EventIDs() {
		t, ok := w.trackers.Get(eid)
		if !ok {
			continue
		}
		start := w.now()
		err := w.regenerateEvent(t)
		metrics.RecordWorkerTick("summary", fmt.Sprintf("%d", eid), w.now().Sub(start), err)
		if err != nil {
			w.logger.Warn().Err(err).Int("event_id", eid).Msg("summary: regeneration failed")
		}
	}
}

// logSegment is one physical file contributing to a date's summary: the
// active YYYY_MM_DD.jsonl, or a rotated YYYY_MM_DD.jsonl.N sibling.
type logSegment struct {
	name string
	seq  int // 0 for the active file, N for a .N rotated sibling
}

func (w *SummaryWorker) regenerateEvent(t *tracker.Tracker) error {
	logDir := t.LogDir()
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("workers: read log dir %s: %w", logDir, err)
	}

	summaryDir := filepath.Join(filepath.Dir(logDir), "summaries")
	courseVersions := loadCourseVersions(t.CoursePath())

	segmentsByDate := make(map[string][]logSegment)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := segmentName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		date := m[1]
		seq := 0
		if m[2] != "" {
			seq, _ = strconv.Atoi(m[2])
		}
		segmentsByDate[date] = append(segmentsByDate[date], logSegment{name: entry.Name(), seq: seq})
	}

	for date, segments := range segmentsByDate {
		sort.Slice(segments, func(i, j int) bool {
			// The active file (seq 0) always holds the newest data, so it
			// sorts last; rotated segments sort oldest (lowest seq) first.
			if (segments[i].seq == 0) != (segments[j].seq == 0) {
				return segments[j].seq == 0
			}
			return segments[i].seq < segments[j].seq
		})

		summaryPath := filepath.Join(summaryDir, date+".json")
		latestMod, err := latestSegmentModTime(logDir, segments)
		if err != nil {
			continue
		}
		if summaryInfo, err := os.Stat(summaryPath); err == nil && !latestMod.After(summaryInfo.ModTime()) {
			continue
		}

		summary := model.Summary{Date: date, Trackers: make(map[string]model.TrackerStat)}
		for _, seg := range segments {
			logPath := filepath.Join(logDir, seg.name)
			segSummary, err := buildSummary(logPath)
			if err != nil {
				return fmt.Errorf("workers: build summary for %s: %w", logPath, err)
			}
			mergeSummary(&summary, segSummary)
			summary.Segments = append(summary.Segments, model.SummarySegment{
				File:   seg.name,
				Course: courseVersionFor(courseVersions, segSummary.EndTS),
			})
		}
		if err := storage.WriteJSON(summaryPath, summary, true); err != nil {
			return fmt.Errorf("workers: write summary %s: %w", summaryPath, err)
		}
	}
	return nil
}

func latestSegmentModTime(logDir string, segments []logSegment) (time.Time, error) {
	var latest time.Time
	for _, seg := range segments {
		info, err := os.Stat(filepath.Join(logDir, seg.name))
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// mergeSummary folds src's point counts, time range, and per-tracker
// stats into dst.
func mergeSummary(dst *model.Summary, src model.Summary) {
	dst.Points += src.Points
	if src.StartTS != 0 && (dst.StartTS == 0 || src.StartTS < dst.StartTS) {
		dst.StartTS = src.StartTS
	}
	if src.EndTS > dst.EndTS {
		dst.EndTS = src.EndTS
	}
	for trackerID, stat := range src.Trackers {
		merged := dst.Trackers[trackerID]
		merged.Points += stat.Points
		if stat.FirstTS != 0 && (merged.FirstTS == 0 || stat.FirstTS < merged.FirstTS) {
			merged.FirstTS = stat.FirstTS
		}
		if stat.LastTS > merged.LastTS {
			merged.LastTS = stat.LastTS
		}
		dst.Trackers[trackerID] = merged
	}
}

func buildSummary(logPath string) (model.Summary, error) {
	summary := model.Summary{Trackers: make(map[string]model.TrackerStat)}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return summary, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry model.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}

		points := entry.Pos
		if len(points) == 0 {
			points = []model.Sample{{TS: entry.TS}}
		}
		for _, p := range points {
			summary.Points++
			if summary.StartTS == 0 || p.TS < summary.StartTS {
				summary.StartTS = p.TS
			}
			if p.TS > summary.EndTS {
				summary.EndTS = p.TS
			}
			stat := summary.Trackers[entry.TrackerID]
			stat.Points++
			if stat.FirstTS == 0 || p.TS < stat.FirstTS {
				stat.FirstTS = p.TS
			}
			if p.TS > stat.LastTS {
				stat.LastTS = p.TS
			}
			summary.Trackers[entry.TrackerID] = stat
		}
	}
	return summary, nil
}

// loadCourseVersions reads the current course file plus every rotated
// sibling (course.json.1, .2, ...) and returns their Updated timestamps,
// sorted ascending.
func loadCourseVersions(coursePath string) []int64 {
	var versions []int64
	if c, err := readCourse(coursePath); err == nil {
		versions = append(versions, c.Updated)
	}
	dir := filepath.Dir(coursePath)
	base := filepath.Base(coursePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
		return versions
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), base+".") {
			continue
		}
		if c, err := readCourse(filepath.Join(dir, e.Name())); err == nil {
			versions = append(versions, c.Updated)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions
}

func readCourse(path string) (model.Course, error) {
	var c model.Course
	err := storage.ReadJSON(path, &c)
	return c, err
}

// courseVersionFor returns the textual representation of the course
// version in effect at endTS: the greatest Updated value not exceeding
// endTS, formatted as an RFC3339 timestamp, or "" if none qualifies.
func courseVersionFor(versions []int64, endTS int64) string {
	var best int64 = -1
	for _, v := range versions {
		if v <= endTS && v > best {
			best = v
		}
	}
	if best < 0 {
		return ""
	}
	return time.Unix(best, 0).UTC().Format(time.RFC3339)
}
