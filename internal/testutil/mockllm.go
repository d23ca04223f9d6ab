// Package testutil provides shared test infrastructure: a scriptable
// mock model, a deterministic mock embedder, and a pgvector-enabled
// Postgres test container.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModelName is the model name MockLLM registers under.
const MockModelName = "mock/test-model"

// MockLLM produces deterministic model responses for tests.
//
// Responses are chosen in two layers: a scripted queue consumed call by
// call (Enqueue), then pattern rules matched against the last user
// message (AddResponse, AddToolResponse). With neither, the fallback
// text is returned. Thread-safe.
type MockLLM struct {
	mu       sync.Mutex
	script   []mockReply
	rules    []mockRule
	fallback string
	calls    []MockCall
}

type mockReply struct {
	text  string
	tools []*ai.ToolRequest
}

type mockRule struct {
	pattern string // lowercased substring match against the user message
	reply   mockReply
}

// MockCall records one call into the mock model.
type MockCall struct {
	UserMessage  string
	ToolMessages int // tool role messages present in the request
	Response     string
}

// NewMockLLM creates a mock with the given fallback text.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// Enqueue scripts the next response regardless of input. Scripted
// responses are consumed in order before any pattern rules apply.
func (m *MockLLM) Enqueue(text string, tools ...*ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockReply{text: text, tools: tools})
}

// AddResponse registers a pattern rule returning plain text. First
// matching rule wins; matching is case-insensitive.
func (m *MockLLM) AddResponse(pattern, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern: strings.ToLower(pattern),
		reply:   mockReply{text: text},
	})
}

// AddToolResponse registers a pattern rule that requests tool calls.
func (m *MockLLM) AddToolResponse(pattern, text string, tools ...*ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern: strings.ToLower(pattern),
		reply:   mockReply{text: text, tools: tools},
	})
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns how many times the model was invoked.
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and any unconsumed script.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
}

// Register registers the mock as a Genkit model under MockModelName.
func (m *MockLLM) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, MockModelName, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	toolMessages := 0
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := req.Messages[i]
		if msg.Role == ai.RoleTool {
			toolMessages++
		}
		if msg.Role == ai.RoleUser && userText == "" {
			userText = msg.Text()
		}
	}

	m.mu.Lock()
	var reply mockReply
	switch {
	case len(m.script) > 0:
		reply = m.script[0]
		m.script = m.script[1:]
	default:
		reply = mockReply{text: m.fallback}
		lower := strings.ToLower(userText)
		for i := range m.rules {
			if strings.Contains(lower, m.rules[i].pattern) {
				reply = m.rules[i].reply
				break
			}
		}
	}
	m.calls = append(m.calls, MockCall{
		UserMessage:  userText,
		ToolMessages: toolMessages,
		Response:     reply.text,
	})
	m.mu.Unlock()

	if cb != nil && reply.text != "" {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(reply.text)},
		})
	}

	var parts []*ai.Part
	for _, tr := range reply.tools {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	if reply.text != "" {
		parts = append(parts, ai.NewTextPart(reply.text))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}

// MockEmbedderName is the embedder name MockEmbedder registers under.
const MockEmbedderName = "mock/test-embedder"

// MockEmbedder generates deterministic embeddings: the same text always
// maps to the same unit vector. Explicit vectors can be pinned per text
// to control similarity precisely. Thread-safe.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder producing dim-sized vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{vectors: make(map[string][]float32), dim: dim}
}

// SetVector pins an explicit vector for a text.
func (e *MockEmbedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
}

// Register registers the mock as a Genkit embedder.
func (e *MockEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, MockEmbedderName, &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(documentText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *MockEmbedder) vectorFor(text string) []float32 {
	e.mu.Lock()
	v, ok := e.vectors[text]
	e.mu.Unlock()
	if ok {
		return v
	}
	return deterministicVector(text, e.dim)
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector hashes text into a normalized vector.
func deterministicVector(text string, dim int) []float32 {
	hash := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32], hash[(idx+1)%32], hash[(idx+2)%32], hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
