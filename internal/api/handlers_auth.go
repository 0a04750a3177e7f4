package api

import (
	"net/http"
)

// handleLogin handles POST /api/auth/login. Returns a bearer token on
// success. When no users are configured the endpoint is disabled.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	if !s.auth.HasUsers() {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "login is not configured")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := s.parseJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return
	}

	resp, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}
