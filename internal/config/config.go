// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/windtrace/trackerd/internal/validation"
)

// Config is trackerd's full configuration surface, per spec.md §6. Every
// field has a koanf tag (struct/file/env sourcing) so the same struct
// serves as the defaults document, the settings.json schema, and the
// flag-bound destination in cmd/server.
type Config struct {
	// Port is the UDP ingest port.
	Port int `koanf:"port" validate:"required,min=1,max=65535"`
	// HTTPPort is the HTTP port; defaults to Port when zero (ApplyDefaults).
	HTTPPort int `koanf:"http_port" validate:"min=0,max=65535"`
	// NoHTTP disables the HTTP ingest/admin listener entirely.
	NoHTTP bool `koanf:"no_http"`
	// StaticDir serves the frontend; required when ManagerPassword is set
	// (multi-event mode), optional in legacy single-event mode. Checked
	// in Validate rather than via a struct tag: validator's
	// required_unless can't cleanly express "unless empty".
	StaticDir string `koanf:"static_dir"`
	// DataDir is the root directory for persisted state.
	DataDir string `koanf:"data_dir" validate:"required"`

	// ManagerPassword enables multi-event mode when non-empty.
	ManagerPassword string `koanf:"manager_password"`
	// AdminPassword is the legacy single-event admin password.
	AdminPassword string `koanf:"admin_password"`
	// TrackerPassword is the legacy single-event tracker (ingest) password.
	TrackerPassword string `koanf:"tracker_password"`
	// Timezone is the legacy single-event IANA timezone.
	Timezone string `koanf:"timezone" validate:"required"`

	// LogDir holds the legacy --log-dir value. It is parsed and stored
	// only; no component reads it, and daily logs always live under DataDir.
	LogDir string `koanf:"log_dir"`
	// UsersFile holds the legacy --users-file value. It is parsed and
	// stored only; user overrides always live under DataDir.
	UsersFile string `koanf:"users_file"`
	// CourseFile holds the legacy --course-file value. It is parsed and
	// stored only; course files always live under DataDir.
	CourseFile string `koanf:"course_file"`
	// NoTrackLogs holds the legacy --no-track-logs value. It is parsed and
	// stored only; daily logs are always written.
	NoTrackLogs bool `koanf:"no_track_logs"`
	// NoCurrent holds the legacy --no-current value. It is parsed and
	// stored only; the positions snapshot is always written.
	NoCurrent bool `koanf:"no_current"`
	// RawLogPath is the legacy flat raw-log path (-l/--log); empty disables it.
	RawLogPath string `koanf:"log"`

	// LogLevel is the zerolog minimum level.
	LogLevel string `koanf:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	// LogFormat selects json (production) or console (development) output.
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`
	// LogCaller includes caller file:line in log output.
	LogCaller bool `koanf:"log_caller"`
}

// DefaultSettingsPath is the conventional settings file name searched for
// in the current working directory when ConfigPathEnvVar is unset.
const DefaultSettingsPath = "settings.json"

// ConfigPathEnvVar overrides the settings file location.
const ConfigPathEnvVar = "TRACKERD_SETTINGS"

// EnvPrefix is stripped from environment variable names before they are
// folded into koanf's flat key space (TRACKERD_DATA_DIR -> data_dir).
const EnvPrefix = "TRACKERD_"

func defaultConfig() *Config {
	return &Config{
		Port:      8111,
		HTTPPort:  0, // 0 means "same as Port", applied in ApplyDefaults
		DataDir:   "./data",
		Timezone:  "UTC",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// ApplyDefaults fills in values that depend on other fields once all
// layers (defaults, file, env, flags) have been merged.
func (c *Config) ApplyDefaults() {
	if c.HTTPPort == 0 {
		c.HTTPPort = c.Port
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// MultiEventMode reports whether the manager surface (and per-event
// registry.Catalog) is active, as opposed to legacy single-event mode.
func (c *Config) MultiEventMode() bool {
	return c.ManagerPassword != ""
}

// Validate checks struct-tag constraints plus the cross-field rules the
// validator tags can't express on their own.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !c.MultiEventMode() && c.AdminPassword == "" {
		return fmt.Errorf("config: --admin-password is required in legacy single-event mode")
	}
	if c.MultiEventMode() && c.StaticDir == "" {
		return fmt.Errorf("config: --static-dir (StaticDir) is required in multi-event mode")
	}
	return nil
}
