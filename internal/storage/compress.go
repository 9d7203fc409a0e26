// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// liveEntryTS is the minimal shape needed to decide whether a log line
// falls within the compressor's live window. Malformed lines are skipped
// during live filtering but preserved verbatim in the full view.
type liveEntryTS struct {
	TS int64 `json:"ts"`
}

// WriteCompressedViews reads sourcePath and atomically writes two sibling
// gzip files: livePath containing only lines whose embedded "ts" is
// within the last window of now, and fullPath containing every line
// verbatim. An empty or missing source produces empty gzip outputs.
func WriteCompressedViews(sourcePath, livePath, fullPath string, window time.Duration, now time.Time) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			data = nil
		} else {
			return fmt.Errorf("storage: read source log %s: %w", sourcePath, err)
		}
	}

	cutoff := now.Add(-window).Unix()

	var full bytes.Buffer
	var live bytes.Buffer

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			continue
		}
		full.WriteString(trimmed)
		full.WriteByte('\n')

		var entry liveEntryTS
		if err := json.Unmarshal(line, &entry); err != nil {
			// malformed line: kept in the full view above, skipped here.
			continue
		}
		if entry.TS >= cutoff {
			live.WriteString(trimmed)
			live.WriteByte('\n')
		}
	}

	if err := writeGzipAtomic(fullPath, full.Bytes()); err != nil {
		return err
	}
	if err := writeGzipAtomic(livePath, live.Bytes()); err != nil {
		return err
	}
	return nil
}

func writeGzipAtomic(path string, content []byte) error {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(content); err != nil {
		gw.Close()
		return fmt.Errorf("storage: gzip write for %s: %w", path, err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("storage: gzip close for %s: %w", path, err)
	}
	return WriteAtomic(path, buf.Bytes(), 0o644)
}
