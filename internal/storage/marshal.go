// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"

	"github.com/goccy/go-json"
)

// MarshalLogLine marshals v (typically a model.LogEntry) to a single
// compact JSON line, used on the hot ingest path for daily log appends.
func MarshalLogLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("storage: marshal log line: %w", err)
	}
	return data, nil
}
