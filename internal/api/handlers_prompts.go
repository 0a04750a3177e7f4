package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jordanhubbard/promptvault/pkg/models"
)

// handlePrompts handles the prompt collection.
// GET  /api/prompts — list with filters and pagination
// POST /api/prompts — create
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPrompts(w, r)
	case http.MethodPost:
		s.createPrompt(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
	}
}

func (s *Server) listPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.ListPromptsRequest{
		Search: q.Get("search"),
	}

	if category := q.Get("category"); category != "" {
		req.Category = models.PromptCategory(category)
		if !req.Category.Valid() {
			s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "category: must be one of: orchestrator, task_execution")
			return
		}
	}
	if page := q.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "page: must be a positive integer")
			return
		}
		req.Page = n
	}
	if pageSize := q.Get("page_size"); pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil || n < 1 || n > 100 {
			s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "page_size: must be between 1 and 100")
			return
		}
		req.PageSize = n
	}

	list, err := s.prompts.List(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) createPrompt(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePromptRequest
	if err := s.parseJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	detail, err := s.prompts.Create(r.Context(), &req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, detail)
}

// handlePrompt dispatches requests under /api/prompts/{id}, including
// the versions and evaluate sub-resources.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/prompts/"), "/")
	parts := strings.Split(rest, "/")

	id := parts[0]
	if id == "" {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "prompt not found")
		return
	}

	switch {
	case len(parts) == 1:
		s.handlePromptByID(w, r, id)
	case len(parts) == 2 && parts[1] == "versions":
		s.handleVersions(w, r, id)
	case len(parts) == 2 && parts[1] == "evaluate":
		s.handleEvaluate(w, r, id)
	case len(parts) == 3 && parts[1] == "versions":
		s.handleVersion(w, r, id, parts[2])
	case len(parts) == 4 && parts[1] == "versions" && parts[3] == "restore":
		s.handleRestore(w, r, id, parts[2])
	default:
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "unknown resource")
	}
}

func (s *Server) handlePromptByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		detail, err := s.prompts.Get(r.Context(), id)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, detail)

	case http.MethodPut:
		var req models.UpdatePromptRequest
		if err := s.parseJSON(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
			return
		}
		detail, err := s.prompts.Update(r.Context(), id, &req)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, detail)

	case http.MethodDelete:
		if err := s.prompts.Delete(r.Context(), id); err != nil {
			s.respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
	}
}
