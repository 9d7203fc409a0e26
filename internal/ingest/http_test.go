// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windtrace/trackerd/internal/model"
	"github.com/windtrace/trackerd/internal/ratelimit"
	"github.com/windtrace/trackerd/internal/registry"
	"github.com/windtrace/trackerd/internal/tracker"
)

func newTestServer(t *testing.T, trackerPassword string) http.HandlerFunc {
	t.Helper()
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	reg, err := registry.NewCatalog(filepath.Join(dir, "events.json"), dir, "mgr", now, zerolog.Nop())
	require.NoError(t, err)
	_, err = reg.Create(registry.CreateRequest{Name: "Regatta", AdminPassword: "a", TrackerPassword: trackerPassword, Timezone: "UTC"})
	require.NoError(t, err)

	mgr := tracker.NewManager(dir, reg, now, zerolog.Nop())
	limiter := ratelimit.New(5*time.Second, 10, now)
	router := NewRouter(reg, mgr, limiter, now, zerolog.Nop())
	return HTTPHandler(router, now, zerolog.Nop())
}

func TestHTTPHandler_ValidReportReturns200(t *testing.T) {
	handler := newTestServer(t, "")
	body, _ := json.Marshal(map[string]any{"id": "T1", "eid": 1, "ts": 1000, "lat": 1.0, "lon": 2.0, "sq": 1})

	req := httptest.NewRequest(http.MethodPost, "/api/tracker", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var ack model.AckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, int64(1), ack.Ack)
}

func TestHTTPHandler_MalformedJSONReturns400(t *testing.T) {
	handler := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/tracker", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPHandler_UnknownEventReturns404(t *testing.T) {
	handler := newTestServer(t, "")
	body, _ := json.Marshal(map[string]any{"id": "T1", "eid": 999})
	req := httptest.NewRequest(http.MethodPost, "/api/tracker", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPHandler_WrongPasswordReturns401(t *testing.T) {
	handler := newTestServer(t, "sekret")
	body, _ := json.Marshal(map[string]any{"id": "T1", "eid": 1, "pwd": "nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/tracker", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
