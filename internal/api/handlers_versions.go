package api

import (
	"net/http"
	"strconv"
)

// handleVersions handles GET /api/prompts/{id}/versions
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request, promptID string) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	versions, err := s.prompts.ListVersions(r.Context(), promptID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, versions)
}

// handleVersion handles GET /api/prompts/{id}/versions/{n}
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request, promptID, version string) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	n, err := strconv.Atoi(version)
	if err != nil || n < 1 {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "version_number: must be a positive integer")
		return
	}

	v, err := s.prompts.GetVersion(r.Context(), promptID, n)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

// handleRestore handles POST /api/prompts/{id}/versions/{n}/restore.
// Restore creates a new version carrying the old content; it never
// rewrites history, so the response is 201.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request, promptID, version string) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	n, err := strconv.Atoi(version)
	if err != nil || n < 1 {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "version_number: must be a positive integer")
		return
	}

	restored, err := s.prompts.RestoreVersion(r.Context(), promptID, n)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, restored)
}
