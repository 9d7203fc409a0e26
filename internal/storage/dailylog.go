// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DailyLog is an append-only JSONL file handle bound to a directory and a
// timezone. It rolls to a new file whenever the wall-clock date (in its
// timezone) advances, and serializes every append and rotation under its
// own mutex so a single event's log is always written by one writer at a
// time.
type DailyLog struct {
	mu       sync.Mutex
	dir      string
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
	date     string
	file     *os.File
	writer   *bufio.Writer
}

// NewDailyLog creates a handle rooted at dir, using loc to compute "today".
// now defaults to time.Now when nil, overridable for tests.
func NewDailyLog(dir string, loc *time.Location, now func() time.Time, logger zerolog.Logger) (*DailyLog, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir daily log dir %s: %w", dir, err)
	}
	d := &DailyLog{dir: dir, loc: loc, now: now, logger: logger}
	if err := d.rollIfNeeded(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DailyLog) todayPath(date string) string {
	return filepath.Join(d.dir, date+".jsonl")
}

// rollIfNeeded must be called with d.mu held.
func (d *DailyLog) rollIfNeeded() error {
	today := d.now().In(d.loc).Format("2006_01_02")
	if today == d.date && d.file != nil {
		return nil
	}
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.file != nil {
		d.file.Close()
	}
	path := d.todayPath(today)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open daily log %s: %w", path, err)
	}
	d.file = f
	d.writer = bufio.NewWriter(f)
	d.date = today
	return nil
}

// Append writes one pre-marshaled JSON line (without trailing newline) to
// today's file, rolling over first if the date has advanced.
func (d *DailyLog) Append(line []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rollIfNeeded(); err != nil {
		return err
	}
	if _, err := d.writer.Write(line); err != nil {
		return fmt.Errorf("storage: write daily log line: %w", err)
	}
	if err := d.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("storage: write daily log newline: %w", err)
	}
	if err := d.writer.Flush(); err != nil {
		return fmt.Errorf("storage: flush daily log: %w", err)
	}
	return nil
}

// RotateToday resolves the true current date first (in case it has
// advanced since the handle's cached date was last set), closes the
// active file, rotates it via Rotate, and reopens a fresh, empty file
// for that resolved date.
func (d *DailyLog) RotateToday() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rollIfNeeded(); err != nil {
		return "", err
	}
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.file != nil {
		d.file.Close()
		d.file = nil
		d.writer = nil
	}
	path := d.todayPath(d.date)
	rotated, err := Rotate(path)
	if err != nil {
		return "", err
	}
	d.date = ""
	if err := d.rollIfNeeded(); err != nil {
		return "", err
	}
	return rotated, nil
}

// CurrentPath returns the path of today's active log file.
func (d *DailyLog) CurrentPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.todayPath(d.date)
}

// Close flushes and closes the active file handle.
func (d *DailyLog) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
