// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "flag"

// NewFlagSet returns a flag.FlagSet whose flags are bound directly onto
// cfg's fields, using cfg's current values (defaults+settings.json+env
// already merged) as each flag's default. Parsing the returned set with
// os.Args[1:] therefore gives CLI flags the final word without needing a
// separate merge step — an explicit flag simply overwrites the field it
// is bound to, and an absent flag leaves the already-loaded value alone.
func NewFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("trackerd", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "port", cfg.Port, "UDP ingest port")
	fs.IntVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "HTTP port (default: same as --port)")
	fs.BoolVar(&cfg.NoHTTP, "no-http", cfg.NoHTTP, "disable the HTTP ingest/admin listener")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "directory of static frontend files (required in multi-event mode)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "root directory for persisted state")

	fs.StringVar(&cfg.ManagerPassword, "manager-password", cfg.ManagerPassword, "enables multi-event mode when set")
	fs.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "legacy single-event admin password")
	fs.StringVar(&cfg.TrackerPassword, "tracker-password", cfg.TrackerPassword, "legacy single-event tracker password")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "legacy single-event IANA timezone")

	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "legacy: accepted but unused (daily logs live under --data-dir)")
	fs.StringVar(&cfg.UsersFile, "users-file", cfg.UsersFile, "legacy: accepted but unused (user overrides live under --data-dir)")
	fs.StringVar(&cfg.CourseFile, "course-file", cfg.CourseFile, "legacy: accepted but unused (course files live under --data-dir)")
	fs.BoolVar(&cfg.NoTrackLogs, "no-track-logs", cfg.NoTrackLogs, "legacy: accepted but unused (daily logs are always written)")
	fs.BoolVar(&cfg.NoCurrent, "no-current", cfg.NoCurrent, "legacy: accepted but unused (positions snapshot is always written)")
	fs.StringVar(&cfg.RawLogPath, "log", cfg.RawLogPath, "legacy raw UDP log path")
	fs.StringVar(&cfg.RawLogPath, "l", cfg.RawLogPath, "shorthand for --log")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "zerolog level: trace|debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log output format: json|console")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "include caller file:line in log output")

	return fs
}
