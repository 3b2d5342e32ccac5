package memory

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single role-tagged message in a conversation. Turns are never
// modified after they are appended to a Session.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a conversation thread with bounded history.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	history []Turn
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		history:   []Turn{},
	}
}

// History returns a copy of all retained turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Recent returns a copy of the last k turns, oldest first.
func (s *Session) Recent(k int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 || len(s.history) == 0 {
		return []Turn{}
	}
	if k > len(s.history) {
		k = len(s.history)
	}

	out := make([]Turn, k)
	copy(out, s.history[len(s.history)-k:])
	return out
}

// Len returns the number of retained turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Session) append(turn Turn, maxTurns int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, turn)
	s.history = trimHistory(s.history, maxTurns)
}

// trimHistory drops the oldest turns until at most maxTurns remain.
// The returned slice never aliases evicted entries.
func trimHistory(turns []Turn, maxTurns int) []Turn {
	if maxTurns <= 0 || len(turns) == 0 {
		return []Turn{}
	}
	if len(turns) <= maxTurns {
		return turns
	}

	kept := make([]Turn, maxTurns)
	copy(kept, turns[len(turns)-maxTurns:])
	return kept
}
