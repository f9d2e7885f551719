package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/synth"
)

// documentResponse is the JSON shape for a document in API responses.
// Raw is the serialized YAML body as a string (the []byte field would
// base64-encode).
type documentResponse struct {
	Kind      document.Kind    `json:"kind"`
	LogicalID string           `json:"logical_id"`
	Title     string           `json:"title"`
	Status    document.Status  `json:"status"`
	Issues    []document.Issue `json:"issues,omitempty"`
	Raw       string           `json:"raw"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toDocumentResponse(d *document.Document) documentResponse {
	return documentResponse{
		Kind:      d.Kind,
		LogicalID: d.LogicalID,
		Title:     d.Title,
		Status:    d.Status,
		Issues:    d.Issues,
		Raw:       string(d.Raw),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// persistAndRespond stores a freshly synthesized draft and writes it back.
//
// Synthesis is idempotent: re-building the same logical document upserts
// the draft under the same id, so a repeat POST returns 201 with identical
// content. Only the draft workspace is written; a deployed revision of the
// same document is unaffected until the new draft passes a deployment test.
func (s *Server) persistAndRespond(w http.ResponseWriter, r *http.Request, doc *document.Document) {
	if err := s.documents.Put(r.Context(), doc); err != nil {
		s.logger.Error("storing synthesized document",
			"kind", doc.Kind, "logical_id", doc.LogicalID, "error", err)
		writeInternalError(w, "failed to store document")
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// DashboardRequest is the body for POST /api/dashboards.
type DashboardRequest struct {
	Title string           `json:"title"`
	Views []synth.ViewSpec `json:"views"`
}

// handleBuildDashboard synthesizes a dashboard document from view specs.
func (s *Server) handleBuildDashboard(w http.ResponseWriter, r *http.Request) {
	var req DashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	doc, err := s.synth.BuildDashboard(r.Context(), req.Title, req.Views)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.persistAndRespond(w, r, doc)
}

// handleBuildAutomation synthesizes an automation document from template refs.
func (s *Server) handleBuildAutomation(w http.ResponseWriter, r *http.Request) {
	var req synth.AutomationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	doc, err := s.synth.BuildAutomation(r.Context(), req)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.persistAndRespond(w, r, doc)
}

// ScriptRequest is the body for POST /api/scripts.
type ScriptRequest struct {
	Title   string            `json:"title"`
	Actions []synth.BlockSpec `json:"actions"`
}

// handleBuildScript synthesizes a script document from an action sequence.
func (s *Server) handleBuildScript(w http.ResponseWriter, r *http.Request) {
	var req ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	doc, err := s.synth.BuildScript(r.Context(), req.Title, req.Actions)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.persistAndRespond(w, r, doc)
}

// SceneRequest is the body for POST /api/scenes.
type SceneRequest struct {
	Name     string   `json:"name"`
	Entities []string `json:"entities"`
}

// handleBuildScene synthesizes a scene document snapshotting current states.
func (s *Server) handleBuildScene(w http.ResponseWriter, r *http.Request) {
	var req SceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	doc, err := s.synth.BuildScene(r.Context(), req.Name, req.Entities)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.persistAndRespond(w, r, doc)
}

// handleBuildOverview synthesizes the auto-generated overview dashboard
// from the current entity population. No request body.
func (s *Server) handleBuildOverview(w http.ResponseWriter, r *http.Request) {
	doc, err := s.synth.BuildOverviewDashboard(r.Context())
	if err != nil {
		s.logger.Error("building overview dashboard", "error", err)
		writeInternalError(w, "failed to build overview dashboard")
		return
	}
	s.persistAndRespond(w, r, doc)
}
