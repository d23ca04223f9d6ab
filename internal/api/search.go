package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cargotrail/cargotrail/internal/knowledge"
)

// defaultSearchTopK is the result count when the client omits top_k.
const defaultSearchTopK = 5

// SearchService is the slice of the retrieval pipeline the search
// endpoints need.
type SearchService interface {
	Search(ctx context.Context, query string, k int) (*knowledge.Answer, error)
	SimpleSearch(ctx context.Context, query string, k int) ([]knowledge.SearchResult, error)
}

type searchHandler struct {
	retrieval SearchService
	logger    *slog.Logger
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *searchHandler) parseRequest(w http.ResponseWriter, r *http.Request) (searchRequest, bool) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "query is required", h.logger)
		return req, false
	}
	if req.TopK <= 0 {
		req.TopK = defaultSearchTopK
	}
	return req, true
}

// search handles POST /api/v1/search: retrieval plus a model-written
// answer grounded in the retrieved chunks.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.retrieval.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		h.logger.Error("knowledge search failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "search_failed", "search failed", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, answer, h.logger)
}

// simpleSearch handles POST /api/v1/search/simple: raw chunks only.
func (h *searchHandler) simpleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	results, err := h.retrieval.SimpleSearch(r.Context(), req.Query, req.TopK)
	if err != nil {
		h.logger.Error("simple search failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "search_failed", "search failed", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"results": results}, h.logger)
}
