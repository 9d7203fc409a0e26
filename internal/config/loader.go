// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config from defaults, an optional settings.json, and
// environment variables, in that order (each layer overrides the last).
// It does not apply command-line flags or call Validate — the caller
// (cmd/server) binds flags over the result with NewFlagSet, then calls
// ApplyDefaults and Validate once flags are parsed, so CLI truly has the
// final word per spec.md §6.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findSettingsFile(); path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("config: load settings file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// findSettingsFile resolves the settings.json location: ConfigPathEnvVar
// if set and present, otherwise DefaultSettingsPath in the working
// directory, otherwise none (defaults-plus-env-plus-flags is valid).
func findSettingsFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		return ""
	}
	if _, err := os.Stat(DefaultSettingsPath); err == nil {
		return DefaultSettingsPath
	}
	return ""
}

// envTransformFunc strips the TRACKERD_ prefix and lowercases the rest,
// producing trackerd's flat koanf keys directly (TRACKERD_DATA_DIR ->
// data_dir), unlike the teacher's nested-section remapping table, since
// trackerd's Config has no nested structs to route into.
func envTransformFunc(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
}
