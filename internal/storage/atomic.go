// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the filesystem primitives every event's
// persistent state is built on: atomic writes, rotation, daily log
// append, and compressed-view publication. It has no knowledge of events
// or trackers.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// WriteAtomic writes data to path via a temp file in the same directory
// followed by rename, so a concurrent reader of path never observes a
// partial write. On any failure path is left unchanged.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: rename temp file onto %s: %w", path, err)
	}
	return nil
}

// WriteJSON marshals v and atomically writes it to path. When indent is
// true the output uses two-space indentation, matching the human-readable
// artifacts (events.json, course.json) a deployment operator might open
// by hand; hot-path artifacts (positions snapshot, log lines) pass false.
func WriteJSON(path string, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("storage: marshal json for %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", path, err)
	}
	return WriteAtomic(path, data, 0o644)
}

// ReadJSON reads path and unmarshals it into v. Returns os.ErrNotExist
// (wrapped) when the file does not exist, so callers can use
// errors.Is(err, os.ErrNotExist) to distinguish "not yet created" from a
// real read/parse failure.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: unmarshal %s: %w", path, err)
	}
	return nil
}

// Rotate renames path to the smallest-numbered "path.N" that does not yet
// exist, so rotation order reflects creation order (oldest has the
// smallest suffix). It always re-stats the filesystem rather than caching
// the next suffix, matching the original implementation's behavior across
// restarts. Returns ("", nil) if path does not exist (a no-op).
func Rotate(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("storage: stat %s: %w", path, err)
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d", path, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.Rename(path, candidate); err != nil {
				return "", fmt.Errorf("storage: rotate %s to %s: %w", path, candidate, err)
			}
			return candidate, nil
		}
	}
}
