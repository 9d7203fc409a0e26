// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/windtrace/trackerd/internal/model"
)

func (s *Server) handleListPublicEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.ListPublic())
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	eid, err := strconv.Atoi(chi.URLParam(r, "eid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if _, err := s.reg.Get(eid); err != nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	t, ok := s.trackers.Get(eid)
	if !ok {
		writeJSON(w, http.StatusOK, model.Course{})
		return
	}
	course, err := t.Course()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusOK, model.Course{})
			return
		}
		s.logger.Warn().Err(err).Int("event_id", eid).Msg("api: failed to read course")
		writeError(w, http.StatusInternalServerError, "failed to read course")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleAuthCheck(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
