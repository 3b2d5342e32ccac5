package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/SaiNageswarS/go-collection-boot/linq"
	"go.uber.org/zap"
)

// MultiSearch runs every non-empty query concurrently, merges the hits,
// removes duplicates of the same source (keeping the best scored) and ranks
// the union. It fails only when every query failed. Scores are filtered by
// the searcher itself, so only an explicit WithMinScore filters the union.
func MultiSearch(ctx context.Context, s Searcher, queries []string, opts ...SearchOption) ([]Document, error) {
	settings := SearchSettings{MaxResults: DefaultMaxResults}
	for _, opt := range opts {
		opt(&settings)
	}

	var (
		mu      sync.Mutex
		failed  int
		lastErr error
	)

	tasks := make([]<-chan async.Result[[]Document], 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}

		tasks = append(tasks, async.Go(func() ([]Document, error) {
			docs, err := s.Search(ctx, q, opts...)
			if err != nil {
				logger.Error("Knowledge base query failed", zap.String("query", q), zap.Error(err))
				mu.Lock()
				failed++
				lastErr = err
				mu.Unlock()
				return nil, nil
			}
			return docs, nil
		}))
	}

	if len(tasks) == 0 {
		return []Document{}, nil
	}

	results, err := async.AwaitAll(tasks...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if failed == len(tasks) {
		return nil, lastErr
	}

	flat, err := linq.Pipe2(
		linq.FromSlice(ctx, results),
		linq.Flatten[Document](),
		linq.ToSlice[Document](),
	)
	if err != nil {
		return nil, fmt.Errorf("error merging search results: %w", err)
	}

	// best score first so Distinct keeps the strongest hit per source
	merged, err := linq.Pipe2(
		linq.FromSlice(ctx, Rank(flat, SearchSettings{MinScore: settings.MinScore})),
		linq.Distinct(func(d Document) string { return d.Key() }),
		linq.ToSlice[Document](),
	)
	if err != nil {
		return nil, fmt.Errorf("error merging search results: %w", err)
	}

	return Rank(merged, settings), nil
}
