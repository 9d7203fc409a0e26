// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/logging"
	"github.com/windtrace/trackerd/internal/metrics"
	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/ratelimit"
	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/tracker"
)

// ErrAuth is returned when a report's password does not match; a
// rate-limited report gets ErrRateLimited instead. Both ACKs carry
// error:"auth".
var ErrAuth = errors.New("ingest: authentication failed")

// ErrEventUnknown is returned when the target event does not exist.
var ErrEventUnknown = errors.New("ingest: unknown event")

// ErrEventArchived is returned when the target event is archived.
var ErrEventArchived = errors.New("ingest: event archived")

// ErrRateLimited is returned when the source IP is currently blocked.
var ErrRateLimited = errors.New("ingest: rate limited")

// Result carries the outcome of routing one report, beyond the ack
// response itself, for transport-specific status-code mapping.
type Result struct {
	Ack       model.AckResponse
	Duplicate bool
}

// Router parses, sanitizes, authenticates and dispatches inbound reports
// to the corresponding Event Tracker. It is shared, transport-agnostic
// logic invoked by both the UDP listener and the HTTP POST handler.
type Router struct {
	reg      registry.Registry
	trackers *tracker.Manager
	limiter  *ratelimit.Limiter
	logger   zerolog.Logger
	secLog   *logging.SecurityLogger
	now      func() time.Time
}

// NewRouter constructs a Router over the given registry, tracker manager
// and rate limiter.
func NewRouter(reg registry.Registry, trackers *tracker.Manager, limiter *ratelimit.Limiter, now func() time.Time, logger zerolog.Logger) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{reg: reg, trackers: trackers, limiter: limiter, logger: logger, secLog: logging.NewSecurityLoggerWithLogger(logger), now: now}
}

// HandleReport runs the common ingest contract (spec.md §4.4) for one
// already-sanitized report arriving from sourceIP over the named
// transport, and returns the ACK/error response to send back.
func (r *Router) HandleReport(report model.Report, sourceIP, transport string) (Result, error) {
	return r.HandleReportAs(report, sourceIP, transport, nil)
}

// HandleReportAs is HandleReport with an optional requiredPassword that,
// when non-nil, is compared instead of the event's tracker_password —
// used by the OwnTracks bridge's dedicated owntracks_password override.
func (r *Router) HandleReportAs(report model.Report, sourceIP, transport string, requiredPassword *string) (Result, error) {
	start := r.now()
	defer func() {
		metrics.RecordIngestDuration(transport, r.now().Sub(start))
	}()

	recvTS := r.now().Unix()

	ev, err := r.reg.Get(report.EventID)
	if err != nil {
		metrics.RecordIngestPacket(transport, "unknown_event")
		return Result{Ack: model.AckResponse{Ack: report.Seq, TS: recvTS, Error: "event",
			Msg: fmt.Sprintf("Event %d does not exist", report.EventID)}}, ErrEventUnknown
	}
	if ev.Archived {
		metrics.RecordIngestPacket(transport, "archived_event")
		return Result{Ack: model.AckResponse{Ack: report.Seq, TS: recvTS, Error: "event",
			Msg: fmt.Sprintf("Event %d is archived", report.EventID)}}, ErrEventArchived
	}

	want := ev.TrackerPassword
	if requiredPassword != nil {
		want = *requiredPassword
	}
	if want != "" {
		if r.limiter.Blocked(sourceIP) {
			metrics.RecordRateLimitBlock(fmt.Sprintf("%d", report.EventID))
			metrics.RecordIngestPacket(transport, "rate_limited")
			r.secLog.LogRateLimited(strconv.Itoa(report.EventID), sourceIP, r.limiter.Window().String())
			return Result{Ack: model.AckResponse{Ack: report.Seq, TS: recvTS, Error: "auth",
				Msg: "Too many attempts"}}, ErrRateLimited
		}
		if subtle.ConstantTimeCompare([]byte(report.Password), []byte(want)) != 1 {
			r.limiter.RecordFailure(sourceIP)
			metrics.RecordIngestAuthFailure(fmt.Sprintf("%d", report.EventID))
			metrics.RecordIngestPacket(transport, "auth_failed")
			if transport == "owntracks" {
				r.secLog.LogOwnTracksAuthFailure(strconv.Itoa(report.EventID), sourceIP, "invalid password")
			} else {
				r.secLog.LogIngestAuthFailure(strconv.Itoa(report.EventID), report.TrackerID, sourceIP, "invalid password")
			}
			return Result{Ack: model.AckResponse{Ack: report.Seq, TS: recvTS, Error: "auth"}}, ErrAuth
		}
	}

	if report.AuthCheck {
		metrics.RecordIngestPacket(transport, "auth_check")
		return Result{Ack: model.AckResponse{Ack: report.Seq, TS: recvTS, Event: ev.Name}}, nil
	}

	t, err := r.trackers.GetOrCreate(report.EventID)
	if err != nil {
		metrics.RecordIngestPacket(transport, "tracker_error")
		return Result{}, fmt.Errorf("ingest: get tracker for event %d: %w", report.EventID, err)
	}

	duplicate, err := t.Process(report, sourceIP)
	if err != nil {
		metrics.RecordIngestPacket(transport, "process_error")
		return Result{}, fmt.Errorf("ingest: process report: %w", err)
	}

	outcome := "ok"
	if duplicate {
		outcome = "duplicate"
	}
	metrics.RecordIngestPacket(transport, outcome)

	return Result{
		Ack:       model.AckResponse{Ack: report.Seq, TS: recvTS, Event: ev.Name},
		Duplicate: duplicate,
	}, nil
}
