package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

const (
	DefaultMaxResults = 10
	DefaultMinScore   = 0.5
)

// ErrUnavailable is returned (wrapped) by searchers when the backing
// knowledge base could not be queried.
var ErrUnavailable = errors.New("retrieval unavailable")

// Document is a scored knowledge base chunk.
type Document struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Key identifies the source a document came from so that results of several
// queries can be merged.
func (d Document) Key() string {
	for _, k := range []string{"repository", "url", "source"} {
		if v, ok := d.Metadata[k]; ok {
			if s := fmt.Sprint(v); s != "" {
				return k + ":" + s
			}
		}
	}
	return "text:" + d.Text
}

// Searcher maps a free-form query to a ranked list of documents, highest score
// first. Implementations return an error wrapping ErrUnavailable when the
// backend fails.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...SearchOption) ([]Document, error)
}

type SearchSettings struct {
	MaxResults int
	MinScore   float64
}

type SearchOption func(*SearchSettings)

func WithMaxResults(n int) SearchOption {
	return func(s *SearchSettings) {
		if n > 0 {
			s.MaxResults = n
		}
	}
}

func WithMinScore(score float64) SearchOption {
	return func(s *SearchSettings) { s.MinScore = score }
}

// NewSearchSettings applies opts over the defaults.
func NewSearchSettings(opts ...SearchOption) SearchSettings {
	settings := SearchSettings{
		MaxResults: DefaultMaxResults,
		MinScore:   DefaultMinScore,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return settings
}

// Rank drops documents below the minimum score, orders the rest by score
// (highest first, ties keep their input order) and truncates to MaxResults.
func Rank(docs []Document, settings SearchSettings) []Document {
	ranked := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.Score >= settings.MinScore {
			ranked = append(ranked, d)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if settings.MaxResults > 0 && len(ranked) > settings.MaxResults {
		ranked = ranked[:settings.MaxResults]
	}
	return ranked
}
