package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Synthesis endpoints — each produces an unvalidated document
		r.Post("/dashboards", s.handleBuildDashboard)
		r.Post("/automations", s.handleBuildAutomation)
		r.Post("/scripts", s.handleBuildScript)
		r.Post("/scenes", s.handleBuildScene)
		r.Post("/dashboards/overview", s.handleBuildOverview)

		// Pipeline stages
		r.Post("/validate", s.handleValidate)
		r.Post("/deploy/{kind}/{logicalID}", s.handleDeploy)

		// Document store
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Route("/{kind}/{logicalID}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Delete("/", s.handleDeleteDocument)
			})
		})

		// Entity state store (read-only)
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Get("/{id}", s.handleGetEntity)
		})

		// Suggestion lifecycle
		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", s.handleListSuggestions)
			r.Post("/refresh", s.handleRefreshSuggestions)
			r.Post("/{id}/accept", s.handleAcceptSuggestion)
			r.Post("/{id}/dismiss", s.handleDismissSuggestion)
		})

		// Deployment audit trail
		r.Get("/audit", s.handleListAuditLogs)

		// System
		r.Get("/system/health", s.handleHealth)
	})

	return r
}
