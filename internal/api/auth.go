// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/windtrace/trackerd/internal/logging"
	"github.com/windtrace/trackerd/internal/model"
)

type eventContextKey struct{}

// secureCompare reports whether a and b are equal using a constant-time
// comparison, so a password check's timing doesn't leak how many leading
// bytes matched.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requireEventAdmin resolves {eid}, checks X-Admin-Password against the
// event's admin password, and stashes the resolved model.Event in the
// request context for downstream handlers. A missing event id, unknown
// event, or password mismatch short-circuits with the appropriate status.
func (s *Server) requireEventAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eid, err := strconv.Atoi(chi.URLParam(r, "eid"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid event id")
			return
		}
		ev, err := s.reg.Get(eid)
		if err != nil {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if !secureCompare(r.Header.Get("X-Admin-Password"), ev.AdminPassword) {
			s.secLog.LogAdminAuthFailure(r.RemoteAddr, r.URL.Path)
			writeError(w, http.StatusForbidden, "invalid admin password")
			return
		}
		ctx := context.WithValue(r.Context(), eventContextKey{}, ev)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireManager checks X-Manager-Password against the registry's
// manager password.
func (s *Server) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.reg.ManagerPassword() == "" || !secureCompare(r.Header.Get("X-Manager-Password"), s.reg.ManagerPassword()) {
			s.secLog.LogManagerAuthFailure(chi.URLParam(r, "eid"), r.RemoteAddr, r.URL.Path)
			writeError(w, http.StatusForbidden, "invalid manager password")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func eventFromContext(ctx context.Context) (model.Event, bool) {
	ev, ok := ctx.Value(eventContextKey{}).(model.Event)
	return ev, ok
}
