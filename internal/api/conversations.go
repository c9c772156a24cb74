package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Text string `json:"text"`
}

// postMessage handles POST /api/v1/conversations/{id}/messages
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := s.deps.Conversations.Advance(r.Context(), id, req.Text)
	if err != nil {
		s.logger.Error("advance failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error, please try again")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// getConversation handles GET /api/v1/conversations/{id}
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok, err := s.deps.Conversations.Snapshot(r.Context(), id)
	if err != nil {
		s.logger.Error("load conversation failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// resetConversation handles DELETE /api/v1/conversations/{id}
func (s *Server) resetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reply, err := s.deps.Conversations.Reset(r.Context(), id)
	if err != nil {
		s.logger.Error("reset failed", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
