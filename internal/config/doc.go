// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads trackerd's configuration from layered sources —
// built-in defaults, an optional settings.json, environment variables,
// and finally command-line flags — using koanf the way the teacher's
// internal/config package does, scaled down to trackerd's much smaller
// configuration surface.
package config
