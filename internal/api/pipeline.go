package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dwrignell/homesynth/internal/deploy"
	"github.com/dwrignell/homesynth/internal/document"
	"github.com/dwrignell/homesynth/internal/infrastructure/mqtt"
)

// ValidateRequest names the stored document to validate.
type ValidateRequest struct {
	Kind      document.Kind `json:"kind"`
	LogicalID string        `json:"logical_id"`
}

// ValidateResponse carries the validation verdict and the updated document.
type ValidateResponse struct {
	Valid    bool             `json:"valid"`
	Issues   []document.Issue `json:"issues"`
	Document documentResponse `json:"document"`
}

// handleValidate runs the three validation passes over a stored document
// and persists the resulting status and issue list.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !document.ValidKind(req.Kind) {
		writeBadRequest(w, "unknown document kind")
		return
	}

	doc, err := s.documents.Get(r.Context(), req.Kind, req.LogicalID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeNotFound(w, "document not found")
			return
		}
		s.logger.Error("loading document for validation",
			"kind", req.Kind, "logical_id", req.LogicalID, "error", err)
		writeInternalError(w, "failed to load document")
		return
	}

	result := s.validator.Validate(r.Context(), doc)

	if err := s.documents.Put(r.Context(), doc); err != nil {
		s.logger.Error("persisting validation result",
			"kind", doc.Kind, "logical_id", doc.LogicalID, "error", err)
		writeInternalError(w, "failed to persist validation result")
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:    result.Valid,
		Issues:   result.Issues,
		Document: toDocumentResponse(doc),
	})
}

// DeployResponse reports a deployment test cycle.
type DeployResponse struct {
	Passed            bool   `json:"passed"`
	RollbackPerformed bool   `json:"rollback_performed"`
	Details           string `json:"details,omitempty"`
}

// handleDeploy runs the stage/check/promote cycle for a validated document.
//
// A failed test is a successful API call reporting a negative outcome:
// the response is 200 with passed=false and rollback information. Only
// protocol violations (unvalidated document, unknown document) are errors.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if s.tester == nil {
		writeUnavailable(w, "deployment is not configured")
		return
	}

	kind, ok := parseKindParam(r)
	if !ok {
		writeBadRequest(w, "unknown document kind")
		return
	}
	logicalID := chi.URLParam(r, "logicalID")

	doc, err := s.documents.Get(r.Context(), kind, logicalID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeNotFound(w, "document not found")
			return
		}
		s.logger.Error("loading document for deployment",
			"kind", kind, "logical_id", logicalID, "error", err)
		writeInternalError(w, "failed to load document")
		return
	}

	outcome, err := s.tester.Test(r.Context(), doc)
	switch {
	case errors.Is(err, deploy.ErrNotValidated):
		writeConflict(w, err.Error())
		return
	case err != nil && !errors.Is(err, deploy.ErrTestFailed):
		s.logger.Error("deployment cycle failed",
			"kind", kind, "logical_id", logicalID, "error", err)
		writeInternalError(w, "deployment failed: "+err.Error())
		return
	}

	s.publishDeployEvent(doc, outcome)

	writeJSON(w, http.StatusOK, DeployResponse{
		Passed:            outcome.Passed,
		RollbackPerformed: outcome.RollbackPerformed,
		Details:           outcome.Details,
	})
}

// publishDeployEvent announces a deployment outcome on the event bus.
// Best-effort: a missing or disconnected publisher is not an error.
func (s *Server) publishDeployEvent(doc *document.Document, outcome deploy.Outcome) {
	if s.events == nil || !s.events.IsConnected() {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"kind":               doc.Kind,
		"logical_id":         doc.LogicalID,
		"passed":             outcome.Passed,
		"rollback_performed": outcome.RollbackPerformed,
	})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.EventDeployment(string(doc.Kind), doc.LogicalID)
	if err := s.events.Publish(topic, payload, 1, false); err != nil {
		s.logger.Warn("publishing deployment event", "topic", topic, "error", err)
	}
}
