// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/windtrace/trackerd/internal/model"
)

// upsertUserBody is the accepted shape for POST .../admin/user/{id}.
// Unknown fields are ignored; an object with every field omitted is
// rejected (spec: "empty object -> 400").
type upsertUserBody struct {
	Name   *string     `json:"name"`
	Role   *model.Role `json:"role"`
	Hidden *bool       `json:"hidden"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ev, _ := eventFromContext(r.Context())
	t, err := s.trackers.GetOrCreate(ev.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event state")
		return
	}
	writeJSON(w, http.StatusOK, t.Overrides())
}

func (s *Server) handleClearTracks(w http.ResponseWriter, r *http.Request) {
	ev, _ := eventFromContext(r.Context())
	t, err := s.trackers.GetOrCreate(ev.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event state")
		return
	}
	if err := t.ClearTracks(); err != nil {
		s.logger.Warn().Err(err).Int("event_id", ev.ID).Msg("api: clear-tracks failed")
		writeError(w, http.StatusInternalServerError, "clear-tracks failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSaveCourse(w http.ResponseWriter, r *http.Request) {
	ev, _ := eventFromContext(r.Context())
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var course model.Course
	if err := json.Unmarshal(body, &course); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	t, err := s.trackers.GetOrCreate(ev.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event state")
		return
	}
	if err := t.SaveCourse(course); err != nil {
		s.logger.Warn().Err(err).Int("event_id", ev.ID).Msg("api: save course failed")
		writeError(w, http.StatusInternalServerError, "failed to save course")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ev, _ := eventFromContext(r.Context())
	t, err := s.trackers.GetOrCreate(ev.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event state")
		return
	}
	if err := t.DeleteCourse(); err != nil {
		s.logger.Warn().Err(err).Int("event_id", ev.ID).Msg("api: delete course failed")
		writeError(w, http.StatusInternalServerError, "failed to delete course")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	ev, _ := eventFromContext(r.Context())
	trackerID := chi.URLParam(r, "id")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var in upsertUserBody
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Name == nil && in.Role == nil && in.Hidden == nil {
		writeError(w, http.StatusBadRequest, "empty override")
		return
	}
	if in.Role != nil && !model.ValidRole(*in.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	t, err := s.trackers.GetOrCreate(ev.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event state")
		return
	}
	override := model.Override{Name: in.Name, Role: in.Role, Hidden: in.Hidden}
	if err := t.SetOverride(trackerID, override); err != nil {
		s.logger.Warn().Err(err).Int("event_id", ev.ID).Str("tracker_id", trackerID).Msg("api: set override failed")
		writeError(w, http.StatusInternalServerError, "failed to set override")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ev, _ := eventFromContext(r.Context())
	trackerID := chi.URLParam(r, "id")

	t, err := s.trackers.GetOrCreate(ev.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event state")
		return
	}
	if err := t.RemoveOverride(trackerID); err != nil {
		s.logger.Warn().Err(err).Int("event_id", ev.ID).Str("tracker_id", trackerID).Msg("api: remove override failed")
		writeError(w, http.StatusInternalServerError, "failed to remove override")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
