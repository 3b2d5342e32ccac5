package agentboot

import (
	"time"

	"github.com/SaiNageswarS/repo-advisor/memory"
)

// AgentConfig holds configuration for the agent
type AgentConfig struct {
	Completer    Completer
	Search       SearchCapability
	SystemPrompt string

	MaxTokens   int
	Temperature float64

	// Conversation management
	Store         *memory.SessionStore
	ContextWindow int

	UpstreamTimeout  time.Duration
	RetrievalTimeout time.Duration
	MaxMessageLength int
}

// Agent answers chat messages, one session turn at a time.
type Agent struct {
	config AgentConfig
}

// Reply is the result of one successful turn.
type Reply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (a *Agent) SessionStore() *memory.SessionStore {
	return a.config.Store
}
