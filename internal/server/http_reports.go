package server

import (
	"net/http"

	"github.com/alfredjeanlab/dojolog/internal/model"
	"github.com/alfredjeanlab/dojolog/internal/stats"
	"github.com/alfredjeanlab/dojolog/internal/store"
)

// handleSync handles POST /v1/sync. It runs one retry sweep and reports
// the outcome. Local mode has nothing to sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	sw, ok := s.store.(store.Sweeper)
	if !ok {
		writeError(w, http.StatusConflict, "sync is only available in remote mode")
		return
	}
	res, err := sw.SyncPending(r.Context())
	if err != nil {
		s.writeStoreError(w, "sync sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetStats handles GET /v1/stats?from=&to=&period=week|month.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessions, err := s.store.ListSessions(r.Context(), filterFromQuery(r))
	if err != nil {
		s.writeStoreError(w, "load stats", err)
		return
	}
	volume, err := stats.Volume(sessions, period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": stats.Summarize(sessions),
		"period":  period,
		"volume":  volume,
	})
}

// handleGetTags handles GET /v1/tags?type=&q=.
func (s *Server) handleGetTags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := stats.TagQuery{Type: model.SessionType(q.Get("type")), Query: q.Get("q")}
	sessions, err := s.store.ListSessions(r.Context(), model.SessionFilter{})
	if err != nil {
		s.writeStoreError(w, "load tags", err)
		return
	}

	entries := stats.AnalyzeTags(sessions, query)
	if entries == nil {
		entries = []stats.TagEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": entries})
}
