package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cargotrail/cargotrail/internal/agent"
)

// shipmentQueryPrefix frames the question so the model reaches for the
// shipment tools rather than the documentation corpus.
const shipmentQueryPrefix = "Search and analyze shipments based on this query: "

type fleetHandler struct {
	agent  ChatService
	logger *slog.Logger
}

type shipmentQueryRequest struct {
	Question string `json:"question"`
}

type shipmentQueryResponse struct {
	Question    string                 `json:"question"`
	Answer      string                 `json:"answer"`
	ToolCalls   []agent.ToolInvocation `json:"tool_calls,omitempty"`
	ActionTaken string                 `json:"action_taken"`
	ErrorCode   string                 `json:"error_code,omitempty"`
}

// queryShipments handles POST /api/v1/shipments/query: a natural
// language question about shipments, answered through the agent and its
// shipment tools. Each query runs in a throwaway session so questions
// never contaminate chat history.
func (h *fleetHandler) queryShipments(w http.ResponseWriter, r *http.Request) {
	var req shipmentQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return
	}

	sessionID := "shipment-query-" + uuid.New().String()
	defer h.agent.Clear(sessionID)

	res, err := h.agent.Chat(r.Context(), sessionID, shipmentQueryPrefix+question)
	if err != nil && res == nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	resp := shipmentQueryResponse{
		Question:    question,
		Answer:      res.Reply,
		ToolCalls:   res.ToolCalls,
		ActionTaken: "searched shipment records",
	}
	if err != nil {
		resp.ErrorCode = abortCode(err)
		h.logger.Warn("shipment query aborted", "code", resp.ErrorCode, "error", err)
	}
	WriteJSON(w, http.StatusOK, resp, h.logger)
}
