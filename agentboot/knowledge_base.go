package agentboot

import (
	"context"
	"fmt"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/repo-advisor/metrics"
	"github.com/SaiNageswarS/repo-advisor/retrieval"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const KnowledgeBaseToolName = "search_knowledge_base"

// KnowledgeBase wraps a retrieval.Searcher with the configured limits, a
// per-search timeout, metrics and logging. Callers may narrow the limits
// (fewer results, higher minimum score) but never widen them.
type KnowledgeBase struct {
	searcher   retrieval.Searcher
	maxResults int
	minScore   float64
	timeout    time.Duration
}

func NewKnowledgeBase(searcher retrieval.Searcher, maxResults int, minScore float64, timeout time.Duration) *KnowledgeBase {
	if maxResults <= 0 {
		maxResults = retrieval.DefaultMaxResults
	}

	return &KnowledgeBase{
		searcher:   searcher,
		maxResults: maxResults,
		minScore:   minScore,
		timeout:    timeout,
	}
}

func (k *KnowledgeBase) Search(ctx context.Context, query string, opts ...retrieval.SearchOption) ([]retrieval.Document, error) {
	if k.searcher == nil {
		return nil, fmt.Errorf("%w: no knowledge base configured", retrieval.ErrUnavailable)
	}

	settings := retrieval.NewSearchSettings(append([]retrieval.SearchOption{
		retrieval.WithMaxResults(k.maxResults),
		retrieval.WithMinScore(k.minScore),
	}, opts...)...)
	settings.MaxResults = min(settings.MaxResults, k.maxResults)
	settings.MinScore = max(settings.MinScore, k.minScore)

	if timeout := k.searchTimeout(ctx); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	docs, err := k.searcher.Search(ctx, query,
		retrieval.WithMaxResults(settings.MaxResults),
		retrieval.WithMinScore(settings.MinScore))
	if err != nil {
		metrics.RecordRetrieval(metrics.StatusError, 0)
		logger.Error("Knowledge base search failed",
			zap.String("query", truncate(query, 100)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	docs = retrieval.Rank(docs, settings)
	metrics.RecordRetrieval(metrics.StatusSuccess, len(docs))
	logger.Info("Knowledge base search",
		zap.String("query", truncate(query, 100)),
		zap.Int("results", len(docs)),
		zap.Duration("duration", time.Since(start)))

	return docs, nil
}

// searchTimeout is the configured timeout, further capped at half of what is
// left of the caller's deadline so the answer always keeps time to run.
func (k *KnowledgeBase) searchTimeout(ctx context.Context) time.Duration {
	timeout := k.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if half := time.Until(deadline) / 2; timeout <= 0 || half < timeout {
			timeout = max(half, time.Millisecond)
		}
	}
	return timeout
}

// newKnowledgeBaseTool exposes search to models with native tool calling.
// The main query and any related queries run concurrently and are merged.
func newKnowledgeBaseTool(search SearchCapability) MCPTool {
	return NewMCPToolBuilder(KnowledgeBaseToolName,
		"Search the knowledge base of sample repositories. Returns matching repositories with their description, AWS services, languages, deployment tooling and GitHub URL. Use it before recommending any repository.").
		StringParam("query", "What the customer is looking for, in plain words, e.g. 'serverless REST API with Lambda and DynamoDB'", true).
		StringSliceParam("related_queries", "Optional alternative phrasings or sub-topics searched alongside the main query", false).
		IntParam("max_results", "Optional maximum number of repositories to return", false).
		NumberParam("min_score", "Optional minimum relevance score between 0 and 1", false).
		WithHandler(func(ctx context.Context, params api.ToolCallFunctionArguments) <-chan *ToolResultChunk {
			out := make(chan *ToolResultChunk)

			go func() {
				defer close(out)

				send := func(chunk *ToolResultChunk) bool {
					select {
					case out <- chunk:
						return true
					case <-ctx.Done():
						return false
					}
				}

				query := stringArg(params, "query")
				if query == "" {
					send(NewToolResultChunk().Error("the query parameter is required").Build())
					return
				}

				var opts []retrieval.SearchOption
				if n, ok := intArg(params, "max_results"); ok {
					opts = append(opts, retrieval.WithMaxResults(n))
				}
				if s, ok := floatArg(params, "min_score"); ok {
					opts = append(opts, retrieval.WithMinScore(s))
				}

				queries := append([]string{query}, stringSliceArg(params, "related_queries")...)
				docs, err := retrieval.MultiSearch(ctx, search, queries, opts...)
				if err != nil {
					send(NewToolResultChunk().
						Error("The knowledge base is currently unavailable. Tell the customer you could not search the repository catalog right now and do not recommend repositories from memory.").
						Build())
					return
				}

				if len(docs) == 0 {
					send(NewToolResultChunk().
						Sentences("No repositories in the knowledge base matched this search.").
						Build())
					return
				}

				for _, d := range docs {
					if !send(NewDocumentResult(d)) {
						return
					}
				}
			}()

			return out
		}).
		Build()
}
