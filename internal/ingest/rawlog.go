// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// rawLogLine is one entry of the legacy flat raw log: the verbatim
// datagram payload plus receive metadata, independent of any per-event
// daily log. Present only for operators migrating off the single-process
// predecessor (spec supplement, enabled via -l/--log).
type rawLogLine struct {
	RecvTS  int64           `json:"recv_ts"`
	SrcIP   string          `json:"src_ip"`
	SrcPort int             `json:"src_port"`
	Raw     json.RawMessage `json:"raw"`
}

// RawLog appends every inbound UDP datagram verbatim to a single flat
// JSONL file. It does not participate in the per-event daily-log
// rotation scheme; it is a flight recorder for debugging ingest issues.
type RawLog struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

// NewRawLog opens (creating if necessary) the raw log file at path in
// append mode.
func NewRawLog(path string, logger zerolog.Logger) (*RawLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &RawLog{file: f, logger: logger}, nil
}

// Append writes one raw datagram's record. Failures are logged and
// otherwise ignored — this is a best-effort debugging aid, never a
// dependency of the ingest contract.
func (r *RawLog) Append(payload []byte, src *net.UDPAddr, recvTS time.Time) {
	line := rawLogLine{
		RecvTS:  recvTS.Unix(),
		SrcIP:   src.IP.String(),
		SrcPort: src.Port,
		Raw:     json.RawMessage(payload),
	}
	data, err := json.Marshal(line)
	if err != nil {
		r.logger.Warn().Err(err).Msg("ingest: failed to marshal raw log line")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.file.Write(append(data, '\n')); err != nil {
		r.logger.Warn().Err(err).Msg("ingest: failed to write raw log line")
	}
}

// Close closes the underlying file.
func (r *RawLog) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
