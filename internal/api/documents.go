package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dwrignell/homesynth/internal/document"
)

// parseKindParam extracts and validates the {kind} URL parameter.
func parseKindParam(r *http.Request) (document.Kind, bool) {
	kind := document.Kind(chi.URLParam(r, "kind"))
	return kind, document.ValidKind(kind)
}

// wantsDeployed reports whether the request targets the deployed tree
// rather than the draft workspace (?deployed=true).
func wantsDeployed(r *http.Request) bool {
	return r.URL.Query().Get("deployed") == "true"
}

// handleListDocuments returns stored drafts, optionally filtered by kind
// (?kind=automation). With ?deployed=true it lists the deployed tree
// instead.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	kinds := document.AllKinds()
	if param := r.URL.Query().Get("kind"); param != "" {
		kind := document.Kind(param)
		if !document.ValidKind(kind) {
			writeBadRequest(w, "unknown document kind: "+param)
			return
		}
		kinds = []document.Kind{kind}
	}

	list := s.documents.List
	if wantsDeployed(r) {
		list = s.documents.ListDeployed
	}

	responses := make([]documentResponse, 0)
	for _, kind := range kinds {
		docs, err := list(r.Context(), kind)
		if err != nil {
			s.logger.Error("listing documents", "kind", kind, "error", err)
			writeInternalError(w, "failed to list documents")
			return
		}
		for i := range docs {
			responses = append(responses, toDocumentResponse(&docs[i]))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": responses,
		"count":     len(responses),
	})
}

// handleGetDocument returns a single draft by kind and logical id, or the
// deployed revision with ?deployed=true.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		writeBadRequest(w, "unknown document kind")
		return
	}
	logicalID := chi.URLParam(r, "logicalID")

	get := s.documents.Get
	if wantsDeployed(r) {
		get = s.documents.GetDeployed
	}

	doc, err := get(r.Context(), kind, logicalID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeNotFound(w, "document not found")
			return
		}
		s.logger.Error("loading document", "kind", kind, "logical_id", logicalID, "error", err)
		writeInternalError(w, "failed to load document")
		return
	}

	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// handleDeleteDocument removes a draft from the workspace.
//
// A previously deployed revision stays live until a replacement is
// deployed; the deployed tree is only ever written by a passed test.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKindParam(r)
	if !ok {
		writeBadRequest(w, "unknown document kind")
		return
	}
	logicalID := chi.URLParam(r, "logicalID")

	if err := s.documents.Delete(r.Context(), kind, logicalID); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeNotFound(w, "document not found")
			return
		}
		s.logger.Error("deleting document", "kind", kind, "logical_id", logicalID, "error", err)
		writeInternalError(w, "failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
