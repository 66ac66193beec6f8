package api

import (
	"net/http"

	"github.com/scan-gateway/internal/qr"
	"github.com/scan-gateway/internal/service"
)

// ScanRequest is the body for POST /api/scan
type ScanRequest struct {
	SessionID string `json:"sessionId"`
	Payload   string `json:"payload"`
	Mode      string `json:"mode,omitempty"`
}

// ClassifyRequest is the body for POST /api/classify
type ClassifyRequest struct {
	Payload string `json:"payload"`
}

// handleScan handles POST /api/scan - run the full pipeline for one payload
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}

	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "sessionId required", nil)
		return
	}

	outcome, err := s.scanService.Scan(r.Context(), &service.ScanInput{
		SessionID: req.SessionID,
		Payload:   req.Payload,
		Mode:      qr.Mode(req.Mode),
	})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}

// handleClassify handles POST /api/classify - detection and parsing only,
// with no draft mutation and no scan history entry.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid JSON body", nil)
		return
	}

	outcome := s.scanService.Classify(req.Payload)
	respondJSON(w, http.StatusOK, outcome)
}
