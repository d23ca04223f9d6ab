package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/cargotrail/cargotrail/internal/session"
	"github.com/cargotrail/cargotrail/internal/testutil"
)

// stubDispatcher returns canned results per tool name and records every
// invocation.
type stubDispatcher struct {
	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	calls   []string
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{
		results: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (d *stubDispatcher) Invoke(_ context.Context, name string, _ json.RawMessage) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
	if err, ok := d.errs[name]; ok {
		return "", err
	}
	if out, ok := d.results[name]; ok {
		return out, nil
	}
	return fmt.Sprintf("result from %s", name), nil
}

func (d *stubDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type testHarness struct {
	agent      *Agent
	mock       *testutil.MockLLM
	dispatcher *stubDispatcher
	sessions   *session.Store
}

func newHarness(t *testing.T, mutate func(*Config)) *testHarness {
	t.Helper()

	g := genkit.Init(context.Background())
	mock := testutil.NewMockLLM("I can help with shipments, costs, and warehouses.")
	mock.Register(g)

	dispatcher := newStubDispatcher()
	sessions := session.NewStore(0)

	cfg := Config{
		Genkit:     g,
		ModelName:  testutil.MockModelName,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     testutil.DiscardLogger(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testHarness{agent: a, mock: mock, dispatcher: dispatcher, sessions: sessions}
}

func toolReq(name, ref string) *ai.ToolRequest {
	return &ai.ToolRequest{
		Name:  name,
		Ref:   ref,
		Input: map[string]any{"tracking_number": "SHIP001"},
	}
}

func TestNewValidation(t *testing.T) {
	base := func() Config {
		return Config{
			Genkit:     genkit.Init(context.Background()),
			ModelName:  "mock/test-model",
			Sessions:   session.NewStore(0),
			Dispatcher: newStubDispatcher(),
			Logger:     testutil.DiscardLogger(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing genkit", func(c *Config) { c.Genkit = nil }},
		{"missing model", func(c *Config) { c.ModelName = "" }},
		{"missing sessions", func(c *Config) { c.Sessions = nil }},
		{"missing dispatcher", func(c *Config) { c.Dispatcher = nil }},
		{"missing logger", func(c *Config) { c.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New should reject the config")
			}
		})
	}
}

func TestChatPlainReply(t *testing.T) {
	h := newHarness(t, nil)
	h.mock.AddResponse("hello", "Hello! How can I help with your shipments?")

	res, err := h.agent.Chat(context.Background(), "s1", "hello there")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.State != StateDone {
		t.Errorf("State = %s, want done", res.State)
	}
	if res.RoundTrips != 1 {
		t.Errorf("RoundTrips = %d, want 1", res.RoundTrips)
	}
	if !strings.Contains(res.Reply, "How can I help") {
		t.Errorf("Reply = %q", res.Reply)
	}

	msgs := h.agent.History("s1")
	if len(msgs) != 2 {
		t.Fatalf("history has %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != ai.RoleUser || msgs[1].Role != ai.RoleModel {
		t.Errorf("history roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestChatToolRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatcher.results["get_shipment_status"] = "Shipment SHIP001 is in transit from Rotterdam to Hamburg."
	h.mock.Enqueue("", toolReq("get_shipment_status", "r1"))
	h.mock.Enqueue("SHIP001 is in transit and should arrive in two days.")

	res, err := h.agent.Chat(context.Background(), "s1", "where is SHIP001?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.State != StateDone {
		t.Errorf("State = %s, want done", res.State)
	}
	if res.RoundTrips != 2 {
		t.Errorf("RoundTrips = %d, want 2", res.RoundTrips)
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Name != "get_shipment_status" {
		t.Errorf("tool name = %q", res.ToolCalls[0].Name)
	}
	if !strings.Contains(res.ToolCalls[0].Result, "in transit") {
		t.Errorf("tool result = %q", res.ToolCalls[0].Result)
	}

	// The second model call must have seen the tool output.
	calls := h.mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("model saw %d calls, want 2", len(calls))
	}
	if calls[1].ToolMessages == 0 {
		t.Error("second model call carried no tool messages")
	}
}

func TestChatSequentialToolDispatch(t *testing.T) {
	h := newHarness(t, nil)
	h.mock.Enqueue("", toolReq("get_shipment_status", "r1"), toolReq("estimate_delivery_time", "r2"))
	h.mock.Enqueue("Done.")

	res, err := h.agent.Chat(context.Background(), "s1", "status and eta please")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(res.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %d, want 2", len(res.ToolCalls))
	}
	h.dispatcher.mu.Lock()
	order := append([]string(nil), h.dispatcher.calls...)
	h.dispatcher.mu.Unlock()
	if order[0] != "get_shipment_status" || order[1] != "estimate_delivery_time" {
		t.Errorf("dispatch order = %v", order)
	}
}

// TestChatAbortsAtRoundTripCap drives a model that requests a tool on
// every call. The turn must stop after the configured cap and end with
// the apology.
func TestChatAbortsAtRoundTripCap(t *testing.T) {
	h := newHarness(t, nil)
	// Empty pattern matches every message, so every round trip requests
	// another tool call.
	h.mock.AddToolResponse("", "", toolReq("search_shipments", "loop"))

	res, err := h.agent.Chat(context.Background(), "s1", "keep digging")
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Chat error = %v, want budget exceeded", err)
	}
	if res.State != StateAborted {
		t.Errorf("State = %s, want aborted", res.State)
	}
	if res.Reply != ApologyMessage {
		t.Errorf("Reply = %q, want the apology", res.Reply)
	}
	if got := h.mock.CallCount(); got != DefaultMaxRoundTrips {
		t.Errorf("model called %d times, want %d", got, DefaultMaxRoundTrips)
	}
	if got := h.dispatcher.callCount(); got != DefaultMaxRoundTrips {
		t.Errorf("tools dispatched %d times, want %d", got, DefaultMaxRoundTrips)
	}

	// The aborted turn still lands in history as user + apology.
	msgs := h.agent.History("s1")
	if len(msgs) != 2 {
		t.Fatalf("history has %d messages, want 2", len(msgs))
	}
	if msgs[1].Text() != ApologyMessage {
		t.Errorf("history reply = %q", msgs[1].Text())
	}
}

func TestChatWallClockBudget(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Budget = time.Nanosecond })
	h.mock.AddResponse("", "too late anyway")

	res, err := h.agent.Chat(context.Background(), "s1", "quick question")
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Chat error = %v, want budget exceeded", err)
	}
	if res.Reply != ApologyMessage {
		t.Errorf("Reply = %q, want the apology", res.Reply)
	}
}

func TestChatParseRetry(t *testing.T) {
	t.Run("recovers after one empty response", func(t *testing.T) {
		h := newHarness(t, nil)
		h.mock.Enqueue("") // unusable: no text, no tools
		h.mock.Enqueue("Recovered answer.")

		res, err := h.agent.Chat(context.Background(), "s1", "hello")
		if err != nil {
			t.Fatalf("Chat: %v", err)
		}
		if res.Reply != "Recovered answer." {
			t.Errorf("Reply = %q", res.Reply)
		}
		if res.RoundTrips != 2 {
			t.Errorf("RoundTrips = %d, want 2", res.RoundTrips)
		}
	})

	t.Run("aborts after two empty responses", func(t *testing.T) {
		h := newHarness(t, nil)
		h.mock.Enqueue("")
		h.mock.Enqueue("")

		res, err := h.agent.Chat(context.Background(), "s1", "hello")
		if !errors.Is(err, ErrModelParseFailure) {
			t.Fatalf("Chat error = %v, want parse failure", err)
		}
		if res.State != StateAborted {
			t.Errorf("State = %s, want aborted", res.State)
		}
	})
}

func TestChatUnknownToolAborts(t *testing.T) {
	h := newHarness(t, nil)
	sentinel := errors.New("unknown tool")
	h.dispatcher.errs["bogus_tool"] = sentinel
	h.mock.Enqueue("", toolReq("bogus_tool", "r1"))

	res, err := h.agent.Chat(context.Background(), "s1", "do something odd")
	if !errors.Is(err, sentinel) {
		t.Fatalf("Chat error = %v, want the dispatcher error", err)
	}
	if res.State != StateAborted || res.Reply != ApologyMessage {
		t.Errorf("State = %s, Reply = %q", res.State, res.Reply)
	}
}

// TestChatToolFaultAsStringContinues checks that a tool fault surfaced
// as a result string (not an error) keeps the turn alive.
func TestChatToolFaultAsStringContinues(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatcher.results["get_shipment_status"] = "Error: InvalidArguments: tracking_number is required"
	h.mock.Enqueue("", toolReq("get_shipment_status", "r1"))
	h.mock.Enqueue("I need a tracking number to look that up.")

	res, err := h.agent.Chat(context.Background(), "s1", "track my package")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.State != StateDone {
		t.Errorf("State = %s, want done", res.State)
	}
	if !strings.Contains(res.ToolCalls[0].Result, "InvalidArguments") {
		t.Errorf("tool result = %q", res.ToolCalls[0].Result)
	}
}

func TestChatInputValidation(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.agent.Chat(context.Background(), "s1", "   "); err == nil {
		t.Error("Chat with blank input should fail")
	}
	if _, err := h.agent.Chat(context.Background(), "", "hello"); err == nil {
		t.Error("Chat with empty session id should fail")
	}
}

func TestClearWipesSession(t *testing.T) {
	h := newHarness(t, nil)
	h.mock.AddResponse("", "Sure.")

	if _, err := h.agent.Chat(context.Background(), "s1", "remember this"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(h.agent.History("s1")) == 0 {
		t.Fatal("history is empty after a turn")
	}

	h.agent.Clear("s1")
	if got := len(h.agent.History("s1")); got != 0 {
		t.Fatalf("history has %d messages after Clear", got)
	}

	// A fresh turn must not see residue from before the clear.
	if _, err := h.agent.Chat(context.Background(), "s1", "new topic"); err != nil {
		t.Fatalf("Chat after Clear: %v", err)
	}
	msgs := h.agent.History("s1")
	if len(msgs) != 2 {
		t.Fatalf("history has %d messages, want 2", len(msgs))
	}
	if !strings.Contains(msgs[0].Text(), "new topic") {
		t.Errorf("first message = %q, want the post-clear input", msgs[0].Text())
	}

	// Clearing a session that never existed is a quiet no-op.
	h.agent.Clear("never-seen")
}

func TestChatSessionsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	h.mock.AddResponse("", "Noted.")

	if _, err := h.agent.Chat(context.Background(), "a", "alpha message"); err != nil {
		t.Fatalf("Chat a: %v", err)
	}
	if _, err := h.agent.Chat(context.Background(), "b", "beta message"); err != nil {
		t.Fatalf("Chat b: %v", err)
	}

	if got := len(h.agent.History("a")); got != 2 {
		t.Errorf("session a has %d messages, want 2", got)
	}
	for _, msg := range h.agent.History("b") {
		if strings.Contains(msg.Text(), "alpha") {
			t.Error("session b leaked content from session a")
		}
	}
}
