package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dwrignell/homesynth/internal/infrastructure/mqtt"
	"github.com/dwrignell/homesynth/internal/suggest"
)

// suggestionResponse is the JSON shape for one suggestion candidate.
type suggestionResponse struct {
	ID        string            `json:"id"`
	Pattern   suggest.Pattern   `json:"pattern"`
	Status    suggest.Status    `json:"status"`
	Draft     *documentResponse `json:"draft,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toSuggestionResponse(c *suggest.Candidate) suggestionResponse {
	resp := suggestionResponse{
		ID:        c.ID,
		Pattern:   c.Pattern,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Draft != nil {
		draft := toDocumentResponse(c.Draft)
		resp.Draft = &draft
	}
	return resp
}

func toSuggestionResponses(candidates []suggest.Candidate) []suggestionResponse {
	responses := make([]suggestionResponse, 0, len(candidates))
	for i := range candidates {
		responses = append(responses, toSuggestionResponse(&candidates[i]))
	}
	return responses
}

// handleListSuggestions returns all stored suggestion candidates.
func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.suggestions == nil {
		writeUnavailable(w, "suggestions are not configured")
		return
	}

	candidates, err := s.suggestions.List(r.Context())
	if err != nil {
		s.logger.Error("listing suggestions", "error", err)
		writeInternalError(w, "failed to list suggestions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": toSuggestionResponses(candidates),
		"count":       len(candidates),
	})
}

// handleRefreshSuggestions runs a mining pass over the recent event window
// and replaces the proposed suggestion set.
func (s *Server) handleRefreshSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.suggestions == nil {
		writeUnavailable(w, "suggestions are not configured")
		return
	}

	candidates, err := s.suggestions.Refresh(r.Context())
	if err != nil {
		s.logger.Error("refreshing suggestions", "error", err)
		writeInternalError(w, "failed to refresh suggestions")
		return
	}

	s.publishSuggestionsEvent(len(candidates))

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": toSuggestionResponses(candidates),
		"count":       len(candidates),
	})
}

// handleAcceptSuggestion accepts a proposed suggestion. The draft automation
// enters the document store unvalidated; it still has to pass validation and
// a deployment test like any other document.
func (s *Server) handleAcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	if s.suggestions == nil {
		writeUnavailable(w, "suggestions are not configured")
		return
	}
	id := chi.URLParam(r, "id")

	draft, err := s.suggestions.Accept(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, suggest.ErrNotFound):
			writeNotFound(w, "suggestion not found")
		case errors.Is(err, suggest.ErrAlreadyResolved):
			writeConflict(w, "suggestion already resolved")
		default:
			s.logger.Error("accepting suggestion", "id", id, "error", err)
			writeInternalError(w, "failed to accept suggestion")
		}
		return
	}

	if err := s.documents.Put(r.Context(), draft); err != nil {
		s.logger.Error("storing accepted draft",
			"id", id, "logical_id", draft.LogicalID, "error", err)
		writeInternalError(w, "failed to store draft")
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(draft))
}

// handleDismissSuggestion dismisses a proposed suggestion. The underlying
// pattern is suppressed from future mining runs.
func (s *Server) handleDismissSuggestion(w http.ResponseWriter, r *http.Request) {
	if s.suggestions == nil {
		writeUnavailable(w, "suggestions are not configured")
		return
	}
	id := chi.URLParam(r, "id")

	if err := s.suggestions.Dismiss(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, suggest.ErrNotFound):
			writeNotFound(w, "suggestion not found")
		case errors.Is(err, suggest.ErrAlreadyResolved):
			writeConflict(w, "suggestion already resolved")
		default:
			s.logger.Error("dismissing suggestion", "id", id, "error", err)
			writeInternalError(w, "failed to dismiss suggestion")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "dismissed"})
}

// publishSuggestionsEvent announces a completed mining run on the event bus.
// Best-effort: a missing or disconnected publisher is not an error.
func (s *Server) publishSuggestionsEvent(count int) {
	if s.events == nil || !s.events.IsConnected() {
		return
	}

	payload, err := json.Marshal(map[string]any{"proposed": count})
	if err != nil {
		return
	}

	topic := mqtt.Topics{}.EventSuggestions()
	if err := s.events.Publish(topic, payload, 1, false); err != nil {
		s.logger.Warn("publishing suggestions event", "topic", topic, "error", err)
	}
}
