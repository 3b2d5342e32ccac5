package agentboot

import (
	"context"

	"github.com/SaiNageswarS/repo-advisor/retrieval"
)

// SearchCapability is the knowledge base search handed to a Completer. The
// completer decides whether and how often to use it.
type SearchCapability interface {
	Search(ctx context.Context, query string, opts ...retrieval.SearchOption) ([]retrieval.Document, error)
}

// CompletionRequest is everything a Completer needs for one assistant turn.
type CompletionRequest struct {
	// Query is the user's new message on its own.
	Query string
	// Context is the assembled history plus the new message.
	Context      string
	SystemPrompt string
	// Search may be nil, in which case the answer is produced without
	// knowledge base results.
	Search      SearchCapability
	MaxTokens   int
	Temperature float64
}

type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}
