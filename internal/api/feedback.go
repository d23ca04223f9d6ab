package api

import (
	"log/slog"
	"net/http"
	"strings"
)

type feedbackHandler struct {
	logger *slog.Logger
}

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// submit handles POST /api/v1/feedback. Feedback is acknowledged and
// logged for later analysis; nothing is persisted.
func (h *feedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "session_id is required", h.logger)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "rating must be between 1 and 5", h.logger)
		return
	}

	h.logger.Info("feedback received",
		"session_id", req.SessionID, "rating", req.Rating)
	if req.Comment != "" {
		h.logger.Info("feedback comment",
			"session_id", req.SessionID, "comment", req.Comment)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message":    "Thank you for your feedback!",
		"session_id": req.SessionID,
		"rating":     req.Rating,
	}, h.logger)
}
