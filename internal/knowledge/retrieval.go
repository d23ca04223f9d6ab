package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Retrieval limits.
const (
	// MaxTopK caps how many chunks a single search may request.
	MaxTopK = 10

	// answerSystemPrompt frames the stuffed-context generation.
	answerSystemPrompt = `You are a logistics operations assistant. Answer the question using only
the reference excerpts provided. If the excerpts do not contain the
answer, say so plainly instead of guessing.`
)

// SearchResult is one retrieved chunk with its position in the ranking.
type SearchResult struct {
	Rank     int               `json:"rank"`
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Answer is a synthesized response grounded in retrieved chunks.
type Answer struct {
	Text    string         `json:"text"`
	Results []SearchResult `json:"results"`
}

// Retrieval embeds queries, searches the index, and optionally
// synthesizes an answer from the retrieved chunks.
type Retrieval struct {
	g           *genkit.Genkit
	modelName   string
	embedder    ai.Embedder
	index       Index
	logger      *slog.Logger
	defaultTopK int
}

// RetrievalConfig configures NewRetrieval.
type RetrievalConfig struct {
	Genkit      *genkit.Genkit
	ModelName   string
	Embedder    ai.Embedder
	Index       Index
	Logger      *slog.Logger
	DefaultTopK int
}

// NewRetrieval wires a retrieval pipeline. Genkit and ModelName are only
// needed for Search; a pipeline used purely for SimpleSearch may leave
// them unset.
func NewRetrieval(cfg RetrievalConfig) (*Retrieval, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 4
	}
	return &Retrieval{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		embedder:    cfg.Embedder,
		index:       cfg.Index,
		logger:      cfg.Logger,
		defaultTopK: cfg.DefaultTopK,
	}, nil
}

// clampTopK normalizes a requested result count: non-positive falls back
// to the configured default, anything above MaxTopK is capped.
func (r *Retrieval) clampTopK(k int) int {
	if k <= 0 {
		k = r.defaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	return k
}

// SimpleSearch returns the k nearest chunks for query without any
// generation step.
func (r *Retrieval) SimpleSearch(ctx context.Context, query string, k int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	k = r.clampTopK(k)

	embedding, err := embedText(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	chunks, err := r.index.Query(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	results := make([]SearchResult, len(chunks))
	for i, c := range chunks {
		results[i] = SearchResult{
			Rank:     i + 1,
			ID:       c.ID,
			Source:   c.Source,
			Content:  c.Content,
			Metadata: c.Metadata,
		}
	}
	r.logger.Debug("simple search", "query_len", len(query), "k", k, "hits", len(results))
	return results, nil
}

// Search retrieves the k nearest chunks and asks the model for an answer
// grounded in them. The retrieved chunks ride along in the response so
// callers can show provenance.
func (r *Retrieval) Search(ctx context.Context, query string, k int) (*Answer, error) {
	if r.g == nil || r.modelName == "" {
		return nil, fmt.Errorf("retrieval is not configured for generation")
	}

	results, err := r.SimpleSearch(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Answer{Text: "No relevant documentation was found for that question."}, nil
	}

	prompt := buildAnswerPrompt(query, results)
	resp, err := genkit.Generate(ctx, r.g,
		ai.WithModelName(r.modelName),
		ai.WithSystem(answerSystemPrompt),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	return &Answer{Text: resp.Text(), Results: results}, nil
}

// buildAnswerPrompt stuffs the retrieved chunks and the question into a
// single prompt.
func buildAnswerPrompt(query string, results []SearchResult) string {
	var b strings.Builder
	b.WriteString("Reference excerpts:\n\n")
	for _, res := range results {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", res.Rank, res.Source, res.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
