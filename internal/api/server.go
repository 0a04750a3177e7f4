package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordanhubbard/promptvault/internal/auth"
	"github.com/jordanhubbard/promptvault/internal/database"
	"github.com/jordanhubbard/promptvault/internal/evaluation"
	"github.com/jordanhubbard/promptvault/internal/events"
	"github.com/jordanhubbard/promptvault/internal/metrics"
	"github.com/jordanhubbard/promptvault/internal/prompts"
	"github.com/jordanhubbard/promptvault/pkg/config"
	"github.com/jordanhubbard/promptvault/pkg/models"
)

// Server represents the HTTP API server
type Server struct {
	prompts     *prompts.Service
	evaluations *evaluation.Service
	bus         *events.Bus
	auth        *auth.Manager
	config      *config.Config
	metrics     *metrics.Metrics
}

// NewServer creates a new API server
func NewServer(ps *prompts.Service, es *evaluation.Service, bus *events.Bus, am *auth.Manager, cfg *config.Config) *Server {
	return &Server{
		prompts:     ps,
		evaluations: es,
		bus:         bus,
		auth:        am,
		config:      cfg,
		metrics:     metrics.NewMetrics(),
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/api/health", s.handleHealth)

	// Prompts
	mux.HandleFunc("/api/prompts", s.handlePrompts)
	mux.HandleFunc("/api/prompts/", s.handlePrompt)

	// Evaluations
	mux.HandleFunc("/api/evaluations/", s.handleEvaluation)

	// Auth
	mux.HandleFunc("/api/auth/login", s.handleLogin)

	// Events (real-time updates and recent history)
	mux.HandleFunc("/api/events", s.handleGetEvents)
	mux.HandleFunc("/api/events/stream", s.handleEventStream)

	// Apply middleware
	handler := s.loggingMiddleware(mux)
	handler = s.corsMiddleware(handler)
	handler = s.authMiddleware(handler)
	handler = s.correlationMiddleware(handler)

	return handler
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "INTERNAL_ERROR", "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Middleware

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeLabel(r.URL.Path)
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

// routeLabel collapses IDs out of paths so metric cardinality stays bounded.
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.config.Security.AllowedOrigins) > 0 {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.config.Security.AllowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Correlation-ID")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// correlationMiddleware echoes or assigns a correlation ID per request.
func (s *Server) correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get("X-Correlation-ID")
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", cid)
		next.ServeHTTP(w, r)
	})
}

// authMiddleware handles authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for health check, login, and the event stream
		if r.URL.Path == "/api/health" ||
			r.URL.Path == "/api/auth/login" ||
			r.URL.Path == "/api/events/stream" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.config.Security.EnableAuth {
			next.ServeHTTP(w, r)
			return
		}

		// API keys take precedence over bearer tokens.
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if s.auth.ValidateAPIKey(apiKey) {
				next.ServeHTTP(w, r)
				return
			}
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing credentials")
			return
		}

		if _, err := s.auth.ValidateToken(token); err != nil {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error envelope with a machine-readable code.
func (s *Server) respondError(w http.ResponseWriter, status int, code, detail string) {
	s.respondJSON(w, status, map[string]string{"code": code, "detail": detail})
}

// respondServiceError maps domain errors onto the error envelope.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.Is(err, database.ErrPromptNotFound),
		errors.Is(err, database.ErrVersionNotFound),
		errors.Is(err, database.ErrEvaluationNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, database.ErrLockConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, database.ErrNoCurrentVersion):
		s.respondError(w, http.StatusBadRequest, "NO_VERSION", err.Error())
	case errors.As(err, &verr):
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
	default:
		log.Printf("Internal error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// parseJSON parses JSON request body
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// extractID extracts ID from URL path
func (s *Server) extractID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")

	parts := strings.Split(id, "/")
	if len(parts) > 0 {
		return parts[0]
	}

	return id
}
