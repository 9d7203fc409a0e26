// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"strings"

	"github.com/windtrace/trackerd/internal/model"
)

const (
	maxIDLen   = 32
	maxRoleLen = 16
	maxVerLen  = 64
	maxOSLen   = 64
	maxPwdLen  = 64
	maxPosLen  = 100
)

var htmlStripReplacer = strings.NewReplacer("<", "", ">", "", "&", "", `"`, "", "'", "")

// sanitizeString strips markup characters, caps length, and falls back to
// def when the result is empty.
func sanitizeString(raw string, maxLen int, def string) string {
	s := stripTags(raw)
	s = htmlStripReplacer.Replace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	if s == "" {
		return def
	}
	return s
}

// stripTags removes "<...>" HTML-tag-shaped substrings before the
// character-level strip pass runs, so "<script>x</script>" degrades to
// "x" rather than "scriptx/script".
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clampInt(v, min, max, def int) int {
	if v < min || v > max {
		return def
	}
	return v
}

func clampFloat(v, min, max, def float64) float64 {
	if v < min || v > max {
		return def
	}
	return v
}

func sanitizeBool(v any, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

func sanitizeRole(raw string) model.Role {
	r := model.Role(sanitizeString(raw, maxRoleLen, string(model.RoleSailor)))
	if !model.ValidRole(r) {
		return model.RoleSailor
	}
	return r
}

// sanitizeSample coerces one raw pos-array element ([ts, lat, lon] or
// [ts, lat, lon, spd]) into a model.Sample, applying the same numeric
// clamps used for the top-level fields.
func sanitizeSample(raw wireSample) (model.Sample, bool) {
	if len(raw) < 3 {
		return model.Sample{}, false
	}
	ts, ok1 := toInt64(raw[0])
	lat, ok2 := toFloat64(raw[1])
	lon, ok3 := toFloat64(raw[2])
	if !ok1 || !ok2 || !ok3 {
		return model.Sample{}, false
	}
	sample := model.Sample{
		TS:  ts,
		Lat: clampFloat(lat, -90, 90, 0),
		Lon: clampFloat(lon, -180, 180, 0),
	}
	if len(raw) >= 4 {
		if spd, ok := toFloat64(raw[3]); ok {
			sample.Speed = clampFloat(spd, 0, 100, 0)
		}
	}
	return sample, true
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

// Sanitize applies typed coercion, clamping and defaults to every
// recognized field of a raw wire report, producing a normalized,
// idempotent model.Report. An invalid value becomes the field's default
// rather than causing rejection of the whole packet.
func Sanitize(raw wireReport) model.Report {
	eventID := 1
	if raw.EventID != nil {
		eventID = *raw.EventID
	}

	pos := make([]model.Sample, 0, len(raw.Pos))
	for i, s := range raw.Pos {
		if i >= maxPosLen {
			break
		}
		if sample, ok := sanitizeSample(s); ok {
			pos = append(pos, sample)
		}
	}

	return model.Report{
		EventID:      eventID,
		TrackerID:    sanitizeString(raw.ID, maxIDLen, "unknown"),
		Seq:          raw.Seq,
		TS:           raw.TS,
		Lat:          clampFloat(raw.Lat, -90, 90, 0),
		Lon:          clampFloat(raw.Lon, -180, 180, 0),
		Pos:          pos,
		Speed:        clampFloat(raw.Speed, 0, 100, 0),
		Heading:      clampInt(raw.Heading, 0, 360, 0),
		Assist:       sanitizeBool(raw.Assist, false),
		Battery:      clampInt(raw.Battery, -1, 100, -1),
		Signal:       clampInt(raw.Signal, -1, 4, -1),
		HeartRate:    clampInt(raw.HeartRate, 0, 300, 0),
		BatteryDrain: clampInt(raw.BatteryDrain, 0, 100, 0),
		Accuracy:     clampFloat(raw.Accuracy, 0, 10000, 0),
		OS:           sanitizeString(raw.OS, maxOSLen, ""),
		Version:      sanitizeString(raw.Version, maxVerLen, ""),
		Role:         sanitizeRole(raw.Role),
		Flags:        raw.Flags,
		Password:     sanitizeString(raw.Password, maxPwdLen, ""),
		AuthCheck:    sanitizeBool(raw.AuthCheck, false),
	}
}
