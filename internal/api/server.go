// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/logging"
	apimiddleware "github.com/windtrace/trackerd/internal/middleware"
	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/tracker"
)

// adminThrottleRequests and adminThrottleWindow bound the per-IP request
// rate for the password-gated admin and manager surfaces, ahead of the
// application-level password check, so brute-force attempts cost a 429
// before they ever reach the comparison.
const (
	adminThrottleRequests = 60
	adminThrottleWindow   = time.Minute
)

// Server is trackerd's admin HTTP surface: public event/course reads,
// per-event admin endpoints, manager endpoints, health probes, metrics,
// and (optionally) static file serving for an operator-supplied web UI.
type Server struct {
	reg       registry.Registry
	trackers  *tracker.Manager
	staticDir string
	now       func() time.Time
	logger    zerolog.Logger
	secLog    *logging.SecurityLogger
}

// NewServer constructs a Server. staticDir may be empty to disable static
// file serving.
func NewServer(reg registry.Registry, trackers *tracker.Manager, staticDir string, now func() time.Time, logger zerolog.Logger) *Server {
	if now == nil {
		now = time.Now
	}
	componentLogger := logger.With().Str("component", "api").Logger()
	return &Server{reg: reg, trackers: trackers, staticDir: staticDir, now: now, logger: componentLogger, secLog: logging.NewSecurityLoggerWithLogger(componentLogger)}
}

// Handler builds the full chi router: CORS, request ID, Prometheus
// instrumentation, public/admin/manager routes, health, metrics, and
// (if configured) static file serving. ingestMount, when non-nil, is
// called with the router so internal/ingest's HTTP handlers can be
// mounted under the same listener without this package importing ingest.
func (s *Server) Handler(ingestMount func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return apimiddleware.RequestID(next.ServeHTTP)
	})
	r.Use(func(next http.Handler) http.Handler {
		return apimiddleware.PrometheusMetrics(next.ServeHTTP)
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"X-Admin-Password", "X-Manager-Password", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/v1/health/live", s.handleHealthLive)
	r.Get("/api/v1/health/ready", s.handleHealthReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/events", s.handleListPublicEvents)
	r.Get("/api/event/{eid}/course", s.handleGetCourse)
	r.Get("/api/event/{eid}/auth/check", s.handleAuthCheck)

	r.Group(func(gr chi.Router) {
		gr.Use(httprate.LimitByIP(adminThrottleRequests, adminThrottleWindow))
		gr.Use(s.requireEventAdmin)
		gr.Get("/api/event/{eid}/users", s.handleListUsers)
		gr.Post("/api/event/{eid}/admin/clear-tracks", s.handleClearTracks)
		gr.Post("/api/event/{eid}/admin/course", s.handleSaveCourse)
		gr.Delete("/api/event/{eid}/admin/course", s.handleDeleteCourse)
		gr.Post("/api/event/{eid}/admin/user/{id}", s.handleUpsertUser)
		gr.Delete("/api/event/{eid}/admin/user/{id}", s.handleDeleteUser)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(httprate.LimitByIP(adminThrottleRequests, adminThrottleWindow))
		gr.Use(s.requireManager)
		gr.Get("/api/manage/events", s.handleListAllEvents)
		gr.Post("/api/manage/event", s.handleCreateEvent)
		gr.Patch("/api/manage/event/{eid}", s.handleUpdateEvent)
	})

	if ingestMount != nil {
		ingestMount(r)
	}

	if s.staticDir != "" {
		r.NotFound(s.handleStatic)
	}

	return r
}
