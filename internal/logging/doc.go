// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging owns trackerd's process-wide zerolog sink and the small
// set of helpers built on top of it.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  cfg.LogLevel,
//	    Format: cfg.LogFormat,
//	})
//	logger := logging.Logger()
//
// cmd/server/main.go calls Init once after loading internal/config.Config,
// then passes the resulting zerolog.Logger into every component's
// constructor (NewServer, NewRouter, NewManager, ...). Components never
// reach back into this package for a logger mid-request; they hold the one
// they were given and derive child loggers from it with .With().
//
// # Request and correlation IDs
//
// internal/middleware.RequestID stamps a request ID and correlation ID onto
// each incoming HTTP request's context using ContextWithRequestID and
// ContextWithNewCorrelationID; handlers that need them back read
// RequestIDFromContext / CorrelationIDFromContext.
//
// # slog adapter
//
// suture (internal/supervisor) logs through the standard library's log/slog,
// not zerolog. NewSlogLogger wraps the global zerolog logger in an
// slog.Handler so supervisor events land in the same structured log stream
// as everything else:
//
//	sup := suture.New("trackerd", suture.Spec{
//	    EventHook: sutureslog.EventHook(logging.NewSlogLogger(), slog.LevelInfo),
//	})
//
// # Security logging
//
// SecurityLogger (security.go) emits structured auth-failure and
// rate-limit events for the ingest and admin/manager auth paths, with
// password and token values sanitized before they reach the log line.
package logging
