package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dwrignell/homesynth/internal/entity"
)

// handleListEntities returns the current entity snapshot, optionally
// filtered by domain (?domain=light).
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	var (
		records []entity.Record
		err     error
	)

	if domain := r.URL.Query().Get("domain"); domain != "" {
		records, err = s.entities.ListDomain(r.Context(), domain)
	} else {
		records, err = s.entities.List(r.Context())
	}
	if err != nil {
		s.logger.Error("listing entities", "error", err)
		writeInternalError(w, "failed to list entities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": records,
		"count":    len(records),
	})
}

// handleGetEntity returns a single entity record by id.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "id")

	record, err := s.entities.Get(r.Context(), entityID)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidID):
			writeBadRequest(w, "invalid entity id")
		case errors.Is(err, entity.ErrNotFound):
			writeNotFound(w, "entity not found")
		default:
			s.logger.Error("loading entity", "entity_id", entityID, "error", err)
			writeInternalError(w, "failed to load entity")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}
