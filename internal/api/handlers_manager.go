// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/validation"
)

// createEventBody is the accepted shape for POST /api/manage/event.
type createEventBody struct {
	Name              string   `json:"name" validate:"required"`
	Description       string   `json:"description"`
	AdminPassword     string   `json:"admin_password"`
	TrackerPassword   string   `json:"tracker_password"`
	OwnTracksPassword string   `json:"owntracks_password"`
	Timezone          string   `json:"timezone"`
	HomeLocation      string   `json:"home_location"`
	HomeLat           *float64 `json:"home_lat"`
	HomeLon           *float64 `json:"home_lon"`
}

// updateEventBody is the accepted shape for PATCH /api/manage/event/{eid}.
// Every field is optional; only non-nil fields are applied.
type updateEventBody struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Archived          *bool    `json:"archived"`
	AdminPassword     *string  `json:"admin_password"`
	TrackerPassword   *string  `json:"tracker_password"`
	OwnTracksPassword *string  `json:"owntracks_password"`
	Timezone          *string  `json:"timezone"`
	HomeLocation      *string  `json:"home_location"`
	HomeLat           *float64 `json:"home_lat"`
	HomeLon           *float64 `json:"home_lon"`
}

func (s *Server) handleListAllEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.ListAll())
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var in createEventBody
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if verr := validation.ValidateStruct(&in); verr != nil {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	id, err := s.reg.Create(registry.CreateRequest{
		Name:              in.Name,
		Description:       in.Description,
		AdminPassword:     in.AdminPassword,
		TrackerPassword:   in.TrackerPassword,
		OwnTracksPassword: in.OwnTracksPassword,
		Timezone:          in.Timezone,
		HomeLocation:      in.HomeLocation,
		HomeLat:           in.HomeLat,
		HomeLon:           in.HomeLon,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("api: create event failed")
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"id": id})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eid, err := strconv.Atoi(chi.URLParam(r, "eid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var in updateEventBody
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	err = s.reg.Update(eid, registry.UpdateFields{
		Name:              in.Name,
		Description:       in.Description,
		Archived:          in.Archived,
		AdminPassword:     in.AdminPassword,
		TrackerPassword:   in.TrackerPassword,
		OwnTracksPassword: in.OwnTracksPassword,
		Timezone:          in.Timezone,
		HomeLocation:      in.HomeLocation,
		HomeLat:           in.HomeLat,
		HomeLon:           in.HomeLon,
	})
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Int("event_id", eid).Msg("api: update event failed")
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
