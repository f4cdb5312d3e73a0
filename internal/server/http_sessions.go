package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/dojolog/internal/model"
)

// handleListSessions handles GET /v1/sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	sessions, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, "list sessions", err)
		return
	}

	// Ensure sessions is never null in JSON output.
	if sessions == nil {
		sessions = []model.Session{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// handleCreateSession handles POST /v1/sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in model.SessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := s.store.AddSession(r.Context(), &in)
	if err != nil {
		s.writeStoreError(w, "add session", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleGetSession handles GET /v1/sessions/{id}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "get session", err)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleUpdateSession handles PATCH /v1/sessions/{id}.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch model.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	sess, err := s.store.UpdateSession(r.Context(), id, &patch)
	if err != nil {
		s.writeStoreError(w, "update session", err)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession handles DELETE /v1/sessions/{id}. Deleting an
// unknown id succeeds.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) model.SessionFilter {
	q := r.URL.Query()
	return model.SessionFilter{From: q.Get("from"), To: q.Get("to")}
}
