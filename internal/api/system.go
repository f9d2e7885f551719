package api

import (
	"net/http"
)

// handleHealth returns the server health status and basic pipeline gauges.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"version":  s.version,
		"entities": s.entities.Count(),
	}
	if s.events != nil {
		resp["mqtt_connected"] = s.events.IsConnected()
	}

	writeJSON(w, http.StatusOK, resp)
}
