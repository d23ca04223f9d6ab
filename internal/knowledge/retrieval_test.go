package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/cargotrail/cargotrail/internal/log"
)

func newTestRetrieval(t *testing.T, idx Index) *Retrieval {
	t.Helper()
	r, err := NewRetrieval(RetrievalConfig{
		Embedder:    &hashEmbedder{},
		Index:       idx,
		Logger:      log.NewNop(),
		DefaultTopK: 4,
	})
	if err != nil {
		t.Fatalf("NewRetrieval: %v", err)
	}
	return r
}

func TestNewRetrievalValidation(t *testing.T) {
	if _, err := NewRetrieval(RetrievalConfig{Index: NewMemoryIndex()}); err == nil {
		t.Error("NewRetrieval without an embedder should fail")
	}
	if _, err := NewRetrieval(RetrievalConfig{Embedder: &hashEmbedder{}}); err == nil {
		t.Error("NewRetrieval without an index should fail")
	}
}

func TestClampTopK(t *testing.T) {
	r := newTestRetrieval(t, NewMemoryIndex())

	tests := []struct {
		in   int
		want int
	}{
		{in: -1, want: 4},
		{in: 0, want: 4},
		{in: 1, want: 1},
		{in: MaxTopK, want: MaxTopK},
		{in: MaxTopK + 5, want: MaxTopK},
	}
	for _, tt := range tests {
		if got := r.clampTopK(tt.in); got != tt.want {
			t.Errorf("clampTopK(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSimpleSearchOverBuiltinCorpus(t *testing.T) {
	ctx := context.Background()
	ing, idx := newTestIngestor(t)
	if _, err := ing.EnsureCorpus(ctx, t.TempDir()); err != nil {
		t.Fatalf("EnsureCorpus: %v", err)
	}

	r := newTestRetrieval(t, idx)
	results, err := r.SimpleSearch(ctx, "safety procedures", 4)
	if err != nil {
		t.Fatalf("SimpleSearch: %v", err)
	}
	if len(results) == 0 || len(results) > 4 {
		t.Fatalf("SimpleSearch returned %d results, want between 1 and 4", len(results))
	}
	for i, res := range results {
		if res.Rank != i+1 {
			t.Errorf("result %d has rank %d", i, res.Rank)
		}
		if res.Content == "" {
			t.Errorf("result %d has empty content", i)
		}
		if res.Source != FallbackSource {
			t.Errorf("result %d has source %q, want %q", i, res.Source, FallbackSource)
		}
		if res.ID == "" {
			t.Errorf("result %d has no chunk ID", i)
		}
	}
}

func TestSimpleSearchEmptyQuery(t *testing.T) {
	r := newTestRetrieval(t, NewMemoryIndex())
	if _, err := r.SimpleSearch(context.Background(), "   ", 4); err == nil {
		t.Error("SimpleSearch with a blank query should fail")
	}
}

func TestSearchRequiresGeneration(t *testing.T) {
	r := newTestRetrieval(t, NewMemoryIndex())
	if _, err := r.Search(context.Background(), "anything", 4); err == nil {
		t.Error("Search without a configured model should fail")
	}
}

func TestBuildAnswerPrompt(t *testing.T) {
	results := []SearchResult{
		{Rank: 1, Source: "manual.txt", Content: "Receiving hours are 06:00 to 18:00."},
		{Rank: 2, Source: "builtin:operations-manual", Content: "Forklift operators require certification."},
	}
	prompt := buildAnswerPrompt("When does receiving open?", results)

	for _, want := range []string{
		"[1] (manual.txt)",
		"[2] (builtin:operations-manual)",
		"Receiving hours are 06:00 to 18:00.",
		"Question: When does receiving open?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(prompt, "When does receiving open?") {
		t.Error("prompt should end with the question")
	}
}
