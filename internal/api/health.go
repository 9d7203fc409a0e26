// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "net/http"

// handleHealthLive always reports healthy once the process can serve
// requests at all; it never touches the registry or filesystem.
func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthReady always answers 200 "ready" once the handler runs: it
// reads the registry's public event list but does not inspect the
// result, so it reports no more than handleHealthLive does.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	_ = s.reg.ListPublic()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
