// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent represents a security-relevant event for audit logging:
// failed ingest/admin/manager authentication, and rate-limit blocks.
type SecurityEvent struct {
	// Event is the type of event (e.g. "ingest_auth_failed", "rate_limited").
	Event string
	// EventID is the sailing event id involved, if any ("" for admin-level events).
	EventID string
	// TrackerID is the tracker id presented, if any.
	TrackerID string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// SecurityLogger provides secure logging for authentication and
// rate-limiting events. It automatically sanitizes sensitive data
// before logging.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
// internal/api.NewServer and internal/ingest.NewRouter each call this once
// at construction with their own component logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent logs a security event with automatic sanitization.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info().
		Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.EventID != "" {
		e = e.Str("event_id", event.EventID)
	}

	if event.TrackerID != "" {
		e = e.Str("tracker_id", event.TrackerID)
	}

	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}

	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}

	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}

	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// ============================================================
// Pre-defined Security Events
// ============================================================

// LogIngestAuthFailure logs a rejected tracker-password on a position report
// (UDP or HTTP POST /api/tracker).
func (l *SecurityLogger) LogIngestAuthFailure(eventID, trackerID, ip, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "ingest_auth_failed",
		EventID:   eventID,
		TrackerID: trackerID,
		IPAddress: ip,
		Success:   false,
		Error:     reason,
	})
}

// LogOwnTracksAuthFailure logs a rejected Basic Auth credential on the
// OwnTracks bridge endpoint.
func (l *SecurityLogger) LogOwnTracksAuthFailure(eventID, ip, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "owntracks_auth_failed",
		EventID:   eventID,
		IPAddress: ip,
		Success:   false,
		Error:     reason,
	})
}

// LogAdminAuthFailure logs a rejected admin-password on the admin HTTP surface.
func (l *SecurityLogger) LogAdminAuthFailure(ip, path string) {
	l.LogEvent(&SecurityEvent{
		Event:     "admin_auth_failed",
		IPAddress: ip,
		Success:   false,
		Details: map[string]string{
			"path": path,
		},
	})
}

// LogManagerAuthFailure logs a rejected manager-password on an event-management
// endpoint (create/archive/restore event, upsert override).
func (l *SecurityLogger) LogManagerAuthFailure(eventID, ip, path string) {
	l.LogEvent(&SecurityEvent{
		Event:     "manager_auth_failed",
		EventID:   eventID,
		IPAddress: ip,
		Success:   false,
		Details: map[string]string{
			"path": path,
		},
	})
}

// LogRateLimited logs a request rejected because its source IP is within the
// post-failure block window.
func (l *SecurityLogger) LogRateLimited(eventID, ip string, remaining string) {
	l.LogEvent(&SecurityEvent{
		Event:     "rate_limited",
		EventID:   eventID,
		IPAddress: ip,
		Success:   false,
		Details: map[string]string{
			"remaining": remaining,
		},
	})
}

// ============================================================
// Sanitization Functions
// ============================================================

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"key",
		"bearer",
		"authorization",
		"cookie",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}

	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := map[string]bool{
		"password":      true,
		"secret":        true,
		"token":         true,
		"api_key":       true,
		"apikey":        true,
		"authorization": true,
		"bearer":        true,
		"cookie":        true,
	}

	if sensitiveKeys[lowerKey] {
		return "***"
	}

	return value
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
