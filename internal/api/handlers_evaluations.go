package api

import (
	"net/http"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

// handleEvaluate handles POST /api/prompts/{id}/evaluate. The run is
// synchronous: the response carries the terminal evaluation.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request, promptID string) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	evaluation, err := s.evaluations.Trigger(r.Context(), promptID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, evaluation)
}

// handleEvaluation dispatches requests under /api/evaluations/.
// GET /api/evaluations/dashboard — category aggregates
// GET /api/evaluations/{id}      — single evaluation
func (s *Server) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	id := s.extractID(r.URL.Path, "/api/evaluations")
	if id == "dashboard" {
		s.handleDashboard(w, r)
		return
	}
	if id == "" {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "evaluation not found")
		return
	}

	evaluation, err := s.evaluations.Get(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, evaluation)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var category models.PromptCategory
	if c := r.URL.Query().Get("category"); c != "" {
		category = models.PromptCategory(c)
		if !category.Valid() {
			s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "category: must be one of: orchestrator, task_execution")
			return
		}
	}

	dashboard, err := s.evaluations.Dashboard(r.Context(), category)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, dashboard)
}
