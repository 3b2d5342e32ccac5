package agentboot

import (
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/llm"
	"github.com/SaiNageswarS/repo-advisor/memory"
	"github.com/SaiNageswarS/repo-advisor/prompts"
	"github.com/SaiNageswarS/repo-advisor/retrieval"
	"go.uber.org/zap"
)

const (
	DefaultMaxTokens        = 4000
	DefaultTemperature      = 0.7
	DefaultUpstreamTimeout  = 30 * time.Second
	DefaultRetrievalTimeout = 10 * time.Second
	DefaultMaxMessageLength = 4000
)

type AgentBuilder struct {
	config           AgentConfig
	client           llm.LLMClient
	searcher         retrieval.Searcher
	retrievalTimeout time.Duration
	maxHistory       int
	maxTurns         int
	maxResults       int
	minScore         float64
}

func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{
		config: AgentConfig{
			MaxTokens:        DefaultMaxTokens,
			Temperature:      DefaultTemperature,
			ContextWindow:    prompts.DefaultContextWindow,
			UpstreamTimeout:  DefaultUpstreamTimeout,
			MaxMessageLength: DefaultMaxMessageLength,
		},
		retrievalTimeout: DefaultRetrievalTimeout,
		maxHistory:       memory.DefaultMaxHistory,
		maxTurns:         DefaultMaxTurns,
		maxResults:       retrieval.DefaultMaxResults,
		minScore:         retrieval.DefaultMinScore,
	}
}

// WithLLM answers with client through an LLMCompleter. WithCompleter takes
// precedence when both are set.
func (b *AgentBuilder) WithLLM(client llm.LLMClient) *AgentBuilder {
	b.client = client
	return b
}

func (b *AgentBuilder) WithCompleter(completer Completer) *AgentBuilder {
	b.config.Completer = completer
	return b
}

func (b *AgentBuilder) WithSearcher(searcher retrieval.Searcher) *AgentBuilder {
	b.searcher = searcher
	return b
}

func (b *AgentBuilder) WithSessionStore(store *memory.SessionStore) *AgentBuilder {
	b.config.Store = store
	return b
}

func (b *AgentBuilder) WithMaxHistory(max int) *AgentBuilder {
	b.maxHistory = max
	return b
}

func (b *AgentBuilder) WithContextWindow(window int) *AgentBuilder {
	b.config.ContextWindow = window
	return b
}

func (b *AgentBuilder) WithSystemPrompt(prompt string) *AgentBuilder {
	b.config.SystemPrompt = prompt
	return b
}

func (b *AgentBuilder) WithMaxTokens(max int) *AgentBuilder {
	b.config.MaxTokens = max
	return b
}

func (b *AgentBuilder) WithTemperature(temperature float64) *AgentBuilder {
	b.config.Temperature = temperature
	return b
}

func (b *AgentBuilder) WithMaxTurns(maxTurns int) *AgentBuilder {
	b.maxTurns = maxTurns
	return b
}

func (b *AgentBuilder) WithUpstreamTimeout(timeout time.Duration) *AgentBuilder {
	b.config.UpstreamTimeout = timeout
	return b
}

// WithRetrievalTimeout bounds each knowledge base search. It is kept below the
// upstream timeout so a slow search leaves time for the answer.
func (b *AgentBuilder) WithRetrievalTimeout(timeout time.Duration) *AgentBuilder {
	b.retrievalTimeout = timeout
	return b
}

func (b *AgentBuilder) WithMaxResults(max int) *AgentBuilder {
	b.maxResults = max
	return b
}

func (b *AgentBuilder) WithMinScore(score float64) *AgentBuilder {
	b.minScore = score
	return b
}

func (b *AgentBuilder) WithMaxMessageLength(max int) *AgentBuilder {
	b.config.MaxMessageLength = max
	return b
}

func (b *AgentBuilder) Build() *Agent {
	cfg := b.config

	if cfg.Store == nil {
		cfg.Store = memory.NewSessionStore(b.maxHistory)
	}

	if cfg.Completer == nil {
		if b.client == nil {
			b.client = llm.NewOllamaClient("gpt-oss:20b") // Default local model
		}
		cfg.Completer = NewLLMCompleter(b.client, b.maxTurns)
	}

	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = prompts.DefaultContextWindow
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	// zero means unset
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	cfg.RetrievalTimeout = b.retrievalTimeout
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if cfg.RetrievalTimeout >= cfg.UpstreamTimeout {
		cfg.RetrievalTimeout = cfg.UpstreamTimeout / 3
	}

	if b.searcher != nil {
		cfg.Search = NewKnowledgeBase(b.searcher, b.maxResults, b.minScore, cfg.RetrievalTimeout)
	}

	if cfg.SystemPrompt == "" {
		prompt, err := prompts.RenderPersonaPrompt(prompts.PersonaData{})
		if err != nil {
			logger.Error("Failed to render persona prompt", zap.Error(err))
		}
		cfg.SystemPrompt = prompt
	}

	return &Agent{config: cfg}
}
