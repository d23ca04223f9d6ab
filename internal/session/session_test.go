package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHistoryAppendAndMessages(t *testing.T) {
	h := NewHistory(0)

	h.Append(
		ai.NewUserMessage(ai.NewTextPart("where is SHIP001?")),
		ai.NewModelMessage(ai.NewTextPart("It is in transit.")),
	)

	if got := h.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	msgs := h.Messages()
	if msgs[0].Role != ai.RoleUser || msgs[1].Role != ai.RoleModel {
		t.Errorf("unexpected roles: %v, %v", msgs[0].Role, msgs[1].Role)
	}

	// Returned slice is a copy; mutating it must not affect the history.
	msgs[0] = nil
	if h.Messages()[0] == nil {
		t.Error("Messages() returned shared backing array")
	}
}

func TestHistoryAppendSkipsNil(t *testing.T) {
	h := NewHistory(0)
	h.Append(nil, ai.NewUserMessage(ai.NewTextPart("hi")), nil)
	if got := h.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestHistoryCapDropsOldest(t *testing.T) {
	h := NewHistory(4)

	for i := range 4 {
		h.Append(
			ai.NewUserMessage(ai.NewTextPart(fmt.Sprintf("question %d", i))),
			ai.NewModelMessage(ai.NewTextPart(fmt.Sprintf("answer %d", i))),
		)
	}

	if got := h.Count(); got != 4 {
		t.Fatalf("Count() = %d, want 4", got)
	}

	msgs := h.Messages()
	if msgs[0].Role != ai.RoleUser {
		t.Errorf("capped history must start at a user turn, got %v", msgs[0].Role)
	}
	if got := msgs[0].Content[0].Text; got != "question 2" {
		t.Errorf("oldest surviving message = %q, want question 2", got)
	}
}

func TestHistoryCapRealignsToUserTurn(t *testing.T) {
	h := NewHistory(3)

	// user, model, tool, model: dropping one from the front leaves the
	// window starting mid-exchange, which must be realigned away.
	h.Append(
		ai.NewUserMessage(ai.NewTextPart("q")),
		ai.NewModelMessage(ai.NewTextPart("calling tool")),
		ai.NewMessage(ai.RoleTool, nil, ai.NewTextPart("tool result")),
		ai.NewModelMessage(ai.NewTextPart("final")),
	)

	for _, m := range h.Messages() {
		if m.Role == ai.RoleTool {
			t.Error("dangling tool message survived realignment")
		}
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(0)
	h.Append(ai.NewUserMessage(ai.NewTextPart("hello")))
	h.Clear()
	if got := h.Count(); got != 0 {
		t.Errorf("Count() after Clear = %d, want 0", got)
	}
}

func TestStoreGetCreatesOnFirstUse(t *testing.T) {
	s := NewStore(0)

	h1 := s.Get("session-a")
	h2 := s.Get("session-a")
	if h1 != h2 {
		t.Error("Get must return the same History for the same ID")
	}
	if s.Get("session-b") == h1 {
		t.Error("distinct sessions must have distinct histories")
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore(0)
	h := s.Get("session-a")
	h.Append(ai.NewUserMessage(ai.NewTextPart("hi")))

	s.Clear("session-a")
	if got := h.Count(); got != 0 {
		t.Errorf("Count() after Store.Clear = %d, want 0", got)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() after Store.Clear = %d, want 0", got)
	}

	// Clearing an unknown session is a no-op, not a panic.
	s.Clear("never-created")
	if got := s.Len(); got != 0 {
		t.Errorf("Clear must not create sessions, Len() = %d", got)
	}
}

// TestStoreClearReleasesEntries drives the get-append-clear cycle a
// throwaway session goes through once per request; the store must not
// retain entries for cleared sessions.
func TestStoreClearReleasesEntries(t *testing.T) {
	s := NewStore(0)

	for i := range 10000 {
		id := fmt.Sprintf("query-%d", i)
		h := s.Get(id)
		h.Append(
			ai.NewUserMessage(ai.NewTextPart("which shipments are delayed?")),
			ai.NewModelMessage(ai.NewTextPart("Two shipments are delayed.")),
		)
		s.Clear(id)
	}

	if got := s.Len(); got != 0 {
		t.Errorf("Len() after clearing every session = %d, want 0", got)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(100)
	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n%2)
			for range 50 {
				h := s.Get(id)
				h.Append(ai.NewUserMessage(ai.NewTextPart("ping")))
				_ = h.Messages()
			}
			s.Clear(id)
		}(i)
	}
	wg.Wait()

	// Every goroutine cleared its session; a racing Get may have
	// recreated one, so clear again and expect an empty store.
	s.Clear("session-0")
	s.Clear("session-1")
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}
