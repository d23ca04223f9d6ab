// Package session provides in-memory conversation history keyed by session ID.
//
// Sessions live for the process lifetime and are never persisted. A session
// is created on first use and cleared explicitly; Clear is atomic with
// respect to a concurrent chat appending to the same session.
package session

import (
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// History encapsulates one session's conversation history with
// thread-safe access. When a cap is set, the oldest messages are dropped
// once the cap is exceeded; the surviving window is realigned to start at
// a user turn so the model never sees a dangling tool response.
//
// The zero value is not useful - use NewHistory.
type History struct {
	mu          sync.RWMutex
	maxMessages int // 0 means unbounded
	messages    []*ai.Message
}

// NewHistory creates a History capped at maxMessages (0 disables the cap).
func NewHistory(maxMessages int) *History {
	return &History{
		maxMessages: maxMessages,
		messages:    make([]*ai.Message, 0),
	}
}

// Append adds messages to the history, dropping the oldest entries when
// the cap is exceeded. Nil messages are skipped.
func (h *History) Append(msgs ...*ai.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		if m == nil {
			continue
		}
		h.messages = append(h.messages, m)
	}
	h.trimLocked()
}

// SetMessages replaces all messages in the history.
// Makes a defensive copy to prevent external modification.
func (h *History) SetMessages(messages []*ai.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]*ai.Message, len(messages))
	copy(h.messages, messages)
	h.trimLocked()
}

// Messages returns a copy of all messages for thread-safe access.
func (h *History) Messages() []*ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]*ai.Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// Count returns the number of messages.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear removes all messages.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]*ai.Message, 0)
}

// trimLocked enforces the message cap. Caller must hold h.mu.
func (h *History) trimLocked() {
	if h.maxMessages <= 0 || len(h.messages) <= h.maxMessages {
		return
	}
	drop := len(h.messages) - h.maxMessages
	h.messages = h.messages[drop:]

	// Realign so the window starts at a user turn.
	for len(h.messages) > 0 && h.messages[0].Role != ai.RoleUser {
		h.messages = h.messages[1:]
	}
}

// Store holds all live sessions. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	maxMessages int
	sessions    map[string]*History
}

// NewStore creates a Store whose histories are capped at maxMessages
// each (0 disables the cap).
func NewStore(maxMessages int) *Store {
	return &Store{
		maxMessages: maxMessages,
		sessions:    make(map[string]*History),
	}
}

// Get returns the history for id, creating it on first use.
func (s *Store) Get(id string) *History {
	s.mu.RLock()
	h, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[id]; ok {
		return h
	}
	h = NewHistory(s.maxMessages)
	s.sessions[id] = h
	return h
}

// Clear removes the session for id, releasing its entry so short-lived
// sessions do not accumulate for the process lifetime. A session that was
// never created is a no-op. The detached history is also emptied so a
// concurrent chat still holding it observes an empty history rather than
// a stale one; its next Get starts a fresh session.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	h, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if ok {
		h.Clear()
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
