// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/tracker"
)

const kmhToKnots = 1 / 1.852

// ownTracksBeacon is the subset of the OwnTracks location-report JSON
// shape trackerd understands.
type ownTracksBeacon struct {
	Type  string  `json:"_type"`
	TID   string  `json:"tid"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	TST   int64   `json:"tst"`
	Vel   float64 `json:"vel"`
	Cog   float64 `json:"cog"`
	Batt  int     `json:"batt"`
	Topic string  `json:"topic"`
}

// OwnTracksHandler returns the POST /api/owntracks/{eid} handler bridging
// OwnTracks beacons into trackerd's normal ingest path. Authentication is
// HTTP Basic, checked against the event's tracker_password (or a
// dedicated owntracksPassword override when non-empty). Non-"location"
// message types are acknowledged with OwnTracks' expected empty-array
// success shape without being processed.
func OwnTracksHandler(router *Router, trackers *tracker.Manager, owntracksPassword func(eventID int) string, now func() time.Time, logger zerolog.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, req *http.Request) {
		eid, err := strconv.Atoi(chi.URLParam(req, "eid"))
		if err != nil {
			http.Error(w, "invalid event id", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		var beacon ownTracksBeacon
		if err := json.Unmarshal(body, &beacon); err != nil {
			http.Error(w, "invalid_json", http.StatusBadRequest)
			return
		}

		if beacon.Type != "location" {
			writeJSONStatus(w, http.StatusOK, []any{})
			return
		}

		_, pwd, _ := req.BasicAuth()

		trackerID := "OT-" + sanitizeString(beacon.TID, maxIDLen-3, "unknown")
		report := model.Report{
			EventID:   eid,
			TrackerID: trackerID,
			TS:        beacon.TST,
			Lat:       clampFloat(beacon.Lat, -90, 90, 0),
			Lon:       clampFloat(beacon.Lon, -180, 180, 0),
			Speed:     clampFloat(beacon.Vel*kmhToKnots, 0, 100, 0),
			Heading:   clampInt(int(beacon.Cog), 0, 360, 0),
			Battery:   clampInt(beacon.Batt, -1, 100, -1),
			Signal:    -1,
			Role:      model.RoleSailor,
			Password:  pwd,
		}

		var requiredPassword *string
		if override := ownTracksPasswordOverride(owntracksPassword, eid); override != "" {
			requiredPassword = &override
		}

		result, routeErr := router.HandleReportAs(report, clientIP(req), "owntracks", requiredPassword)
		if routeErr == nil {
			maybeAutoNameFromTopic(trackers, eid, trackerID, beacon.Topic)
		} else {
			logger.Debug().Err(routeErr).Str("tracker_id", trackerID).Msg("ingest: owntracks report rejected")
		}

		writeJSONStatus(w, http.StatusOK, result.Ack)
	}
}

// ownTracksPasswordOverride looks up a dedicated owntracks_password for
// the event, if the caller configured one.
func ownTracksPasswordOverride(fn func(int) string, eid int) string {
	if fn == nil {
		return ""
	}
	return fn(eid)
}

// maybeAutoNameFromTopic creates a display-name override for trackerID the
// first time it is seen, derived from the trailing segment of the MQTT
// topic (e.g. "owntracks/alice/phone" -> "phone").
func maybeAutoNameFromTopic(trackers *tracker.Manager, eid int, trackerID, topic string) {
	if topic == "" {
		return
	}
	t, ok := trackers.Get(eid)
	if !ok {
		return
	}
	if _, exists := t.Overrides()[trackerID]; exists {
		return
	}
	segments := strings.Split(strings.Trim(topic, "/"), "/")
	name := segments[len(segments)-1]
	if name == "" {
		return
	}
	_ = t.SetOverride(trackerID, model.Override{Name: &name})
}
