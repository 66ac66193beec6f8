package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

const maxHistoryPageSize = 200

// handleGetDraft handles GET /api/sessions/{id}/draft
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Session ID required", nil)
		return
	}

	draft, err := s.drafts.Get(r.Context(), sessionID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}
	if draft == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No draft for session", nil)
		return
	}

	respondJSON(w, http.StatusOK, draft)
}

// handleClearDraft handles DELETE /api/sessions/{id}/draft
func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Session ID required", nil)
		return
	}

	if err := s.drafts.Clear(r.Context(), sessionID); err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListScans handles GET /api/sessions/{id}/scans - scan history,
// newest first.
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Session ID required", nil)
		return
	}

	if s.history == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Scan history is not enabled", nil)
		return
	}

	limit, offset := parsePagination(r, s.config.HistoryPageSize)

	events, err := s.history.ListBySession(r.Context(), sessionID, limit, offset)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scans":  events,
		"limit":  limit,
		"offset": offset,
	})
}

// parsePagination reads limit/offset query parameters, falling back to the
// configured default and capping the page size. Invalid values use defaults.
func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	limit = defaultLimit

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryPageSize {
		limit = maxHistoryPageSize
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	return limit, offset
}
