// Package server exposes the session store over HTTP/JSON for the web
// front-end, plus a server-sent event stream of change notifications.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/dojolog/internal/local"
	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/store"
)

// Server serves the session API.
type Server struct {
	store  store.Store
	hub    *Hub
	logger *slog.Logger
}

// New returns a Server backed by s. hub may be nil, in which case the
// event stream stays silent.
func New(s store.Store, hub *Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, hub: hub, logger: logger}
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /v1/sessions/{id}", s.handleUpdateSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /v1/sync", s.handleSync)
	mux.HandleFunc("GET /v1/stats", s.handleGetStats)
	mux.HandleFunc("GET /v1/tags", s.handleGetTags)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, AuthMiddleware(authToken, mux)))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeStoreError maps a store error to a response. Validation failures
// are the caller's fault and list every failing field.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		fields := make([]fieldError, len(ve.Errors))
		for i, fe := range ve.Errors {
			fields[i] = fieldError{Field: fe.Field, Message: fe.Message}
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Error(), "fields": fields})
	case errors.Is(err, local.ErrUnavailable):
		s.logger.Error("local storage unavailable", "operation", op, "err", err)
		writeError(w, http.StatusServiceUnavailable, "local storage unavailable")
	default:
		s.logger.Error("store operation failed", "operation", op, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
