// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/ratelimit"
	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/tracker"
)

func newOwnTracksTestServer(t *testing.T, trackerPassword, owntracksPassword string) (http.Handler, int) {
	t.Helper()
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	reg, err := registry.NewCatalog(filepath.Join(dir, "events.json"), dir, "mgr", now, zerolog.Nop())
	require.NoError(t, err)
	id, err := reg.Create(registry.CreateRequest{
		Name: "Regatta", AdminPassword: "a", TrackerPassword: trackerPassword,
		OwnTracksPassword: owntracksPassword, Timezone: "UTC",
	})
	require.NoError(t, err)

	mgr := tracker.NewManager(dir, reg, now, zerolog.Nop())
	limiter := ratelimit.New(5*time.Second, 10, now)
	router := NewRouter(reg, mgr, limiter, now, zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/api/owntracks/{eid}", OwnTracksHandler(router, mgr, ownTracksPasswordLookup(reg), now, zerolog.Nop()))
	return r, id
}

func ownTracksPasswordLookup(reg registry.Registry) func(int) string {
	return func(eid int) string {
		ev, err := reg.Get(eid)
		if err != nil {
			return ""
		}
		return ev.OwnTracksPassword
	}
}

func TestOwnTracksHandler_UsesDedicatedPasswordOverride(t *testing.T) {
	handler, id := newOwnTracksTestServer(t, "tracker-secret", "owntracks-secret")
	body, _ := json.Marshal(map[string]any{"_type": "location", "tid": "AB", "lat": 1.0, "lon": 2.0, "tst": 1000})

	req := httptest.NewRequest(http.MethodPost, "/api/owntracks/"+strconv.Itoa(id), bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	req.SetBasicAuth("u", "tracker-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var ack model.AckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.NotEmpty(t, ack.Error, "tracker_password must be rejected once an owntracks_password override is set")

	// Distinct source IP: the first (failed) attempt above started a
	// block window for 10.0.0.1 under the fixed test clock, which would
	// otherwise mask this second, independently-correct attempt.
	req2 := httptest.NewRequest(http.MethodPost, "/api/owntracks/"+strconv.Itoa(id), bytes.NewReader(body))
	req2.RemoteAddr = "10.0.0.2:5555"
	req2.SetBasicAuth("u", "owntracks-secret")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
	var ack2 model.AckResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &ack2))
	assert.Empty(t, ack2.Error)
}

func TestOwnTracksHandler_FallsBackToTrackerPasswordWhenNoOverride(t *testing.T) {
	handler, id := newOwnTracksTestServer(t, "tracker-secret", "")
	body, _ := json.Marshal(map[string]any{"_type": "location", "tid": "AB", "lat": 1.0, "lon": 2.0, "tst": 1000})

	req := httptest.NewRequest(http.MethodPost, "/api/owntracks/"+strconv.Itoa(id), bytes.NewReader(body))
	req.SetBasicAuth("u", "tracker-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var ack model.AckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Empty(t, ack.Error)
}

