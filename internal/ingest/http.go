// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// HTTPHandler returns the POST /api/tracker handler sharing identical
// semantics with the UDP listener after decoding (spec.md §4.4).
func HTTPHandler(router *Router, now func() time.Time, logger zerolog.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}

		var raw wireReport
		if err := json.Unmarshal(body, &raw); err != nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
			return
		}
		report := Sanitize(raw)
		sourceIP := clientIP(req)

		result, routeErr := router.HandleReport(report, sourceIP, "http")
		status := statusForError(routeErr)
		if routeErr != nil {
			logger.Debug().Err(routeErr).Str("tracker_id", report.TrackerID).Str("src_ip", sourceIP).
				Msg("ingest: http report rejected")
		}
		writeJSONStatus(w, status, result.Ack)
	}
}

func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEventUnknown):
		return http.StatusNotFound
	case errors.Is(err, ErrEventArchived):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP extracts the caller's IP, preferring X-Forwarded-For's first
// hop when present (reverse-proxy deployments) and falling back to
// RemoteAddr.
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := req.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
