package memory

import (
	"sync"
	"time"
)

const DefaultMaxHistory = 10

// SessionStore keeps process-local conversation state keyed by session id.
// It is safe for concurrent use. The map is guarded by one lock and every
// session's history by its own, so turns appended to different sessions never
// wait on each other. Nothing is persisted: a fresh store is always valid.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxHistory int
}

// NewSessionStore creates an empty store that retains at most maxHistory turns
// per session.
func NewSessionStore(maxHistory int) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	return &SessionStore{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
	}
}

// GetOrCreate returns the session for sessionID, creating an empty one when the
// id has not been seen before.
func (s *SessionStore) GetOrCreate(sessionID string) *Session {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return session
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have created it between the two locks
	if session, ok = s.sessions[sessionID]; ok {
		return session
	}

	session = newSession(sessionID)
	s.sessions[sessionID] = session
	return session
}

// AppendTurn appends a turn to the session history, evicting the oldest turns
// when the history grows past the configured bound.
func (s *SessionStore) AppendTurn(sessionID, role, content string) {
	s.GetOrCreate(sessionID).append(Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}, s.maxHistory)
}

// GetRecent returns up to k of the most recent turns, oldest first. Unknown
// sessions yield an empty slice and are not created.
func (s *SessionStore) GetRecent(sessionID string, k int) []Turn {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return []Turn{}
	}

	return session.Recent(k)
}

// Len returns the number of sessions currently held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// GetMaxHistory returns the maximum number of turns retained per session.
func (s *SessionStore) GetMaxHistory() int {
	return s.maxHistory
}
