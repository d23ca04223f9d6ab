package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/cargotrail/cargotrail/internal/agent"
)

// ChatService is the slice of the agent the chat endpoints need.
type ChatService interface {
	Chat(ctx context.Context, sessionID, input string) (*agent.Result, error)
	Clear(sessionID string)
	History(sessionID string) []*ai.Message
}

type chatHandler struct {
	agent  ChatService
	logger *slog.Logger
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID  string                 `json:"session_id"`
	Reply      string                 `json:"reply"`
	State      string                 `json:"state"`
	RoundTrips int                    `json:"round_trips"`
	ToolCalls  []agent.ToolInvocation `json:"tool_calls,omitempty"`
	ErrorCode  string                 `json:"error_code,omitempty"`
}

// send handles POST /api/v1/chat. An omitted session_id starts a fresh
// session; the assigned ID comes back in the response. An aborted turn
// is still a 200: the turn ran and produced the apology reply.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "message is required", h.logger)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	res, err := h.agent.Chat(r.Context(), sessionID, req.Message)
	if err != nil && res == nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	resp := chatResponse{
		SessionID:  sessionID,
		Reply:      res.Reply,
		State:      res.State.String(),
		RoundTrips: res.RoundTrips,
		ToolCalls:  res.ToolCalls,
	}
	if err != nil {
		resp.ErrorCode = abortCode(err)
		h.logger.Warn("chat turn aborted",
			"session_id", sessionID, "code", resp.ErrorCode, "error", err)
	}
	WriteJSON(w, http.StatusOK, resp, h.logger)
}

// streamChunkSize is the number of characters per SSE chunk event.
const streamChunkSize = 20

// stream handles POST /api/v1/chat/stream. The turn runs to completion
// and the reply is then delivered as server-sent events in fixed-size
// chunks, ending with a done event carrying the session ID. Validation
// failures are reported as plain JSON errors before the stream opens.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "message is required", h.logger)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	res, err := h.agent.Chat(r.Context(), sessionID, req.Message)
	if err != nil && res == nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)

	reply := []rune(res.Reply)
	for start := 0; start < len(reply); start += streamChunkSize {
		end := min(start+streamChunkSize, len(reply))
		h.writeEvent(w, map[string]any{"chunk": string(reply[start:end])})
		_ = rc.Flush()
	}

	done := map[string]any{"done": true, "session_id": sessionID}
	if err != nil {
		done["error_code"] = abortCode(err)
		h.logger.Warn("streamed chat turn aborted",
			"session_id", sessionID, "code", done["error_code"], "error", err)
	}
	h.writeEvent(w, done)
	_ = rc.Flush()
}

// writeEvent emits one SSE data event.
func (h *chatHandler) writeEvent(w io.Writer, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encoding stream event", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

// abortCode maps an abort cause onto a stable client-facing code.
func abortCode(err error) string {
	switch {
	case errors.Is(err, agent.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, agent.ErrModelParseFailure):
		return "model_parse_failure"
	case errors.Is(err, agent.ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "tool_dispatch_failed"
	}
}

// clearSession handles DELETE /api/v1/sessions/{id}. Clearing an
// unknown session succeeds; the outcome is the same empty history.
func (h *chatHandler) clearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "session id is required", h.logger)
		return
	}

	h.agent.Clear(id)
	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"cleared":    true,
	}, h.logger)
}

type transcriptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// getMessages handles GET /api/v1/sessions/{id}/messages.
func (h *chatHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "session id is required", h.logger)
		return
	}

	msgs := h.agent.History(id)
	out := make([]transcriptMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, transcriptMessage{Role: string(m.Role), Text: m.Text()})
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   out,
	}, h.logger)
}
