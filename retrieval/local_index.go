package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// LocalIndex is an in-process Searcher over knowledge base documents. Scores
// are the fraction of distinct query terms found in a document, so they fall
// in [0,1] like the managed knowledge base scores.
type LocalIndex struct {
	mu   sync.RWMutex
	docs []indexedDocument
}

type indexedDocument struct {
	doc   Document
	terms map[string]struct{}
}

// knowledgeBaseFile accepts both the ingestion format ({text, metadata}) and
// the full repository format ({repository, url, searchable_content, metadata}).
type knowledgeBaseFile struct {
	Text              string         `json:"text"`
	SearchableContent string         `json:"searchable_content"`
	Repository        string         `json:"repository"`
	URL               string         `json:"url"`
	Metadata          map[string]any `json:"metadata"`
}

func NewLocalIndex(docs ...Document) *LocalIndex {
	idx := &LocalIndex{}
	idx.Add(docs...)
	return idx
}

// LoadLocalIndex indexes every *.json file in dir.
func LoadLocalIndex(dir string) (*LocalIndex, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	idx := NewLocalIndex()
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		var f knowledgeBaseFile
		if err := json.Unmarshal(raw, &f); err != nil {
			logger.Error("Skipping malformed knowledge base document", zap.String("path", p), zap.Error(err))
			continue
		}

		idx.Add(f.toDocument(p))
	}

	logger.Info("Loaded local knowledge base", zap.String("dir", dir), zap.Int("documents", idx.Len()))
	return idx, nil
}

func (f knowledgeBaseFile) toDocument(path string) Document {
	text := f.Text
	if text == "" {
		text = f.SearchableContent
	}

	metadata := make(map[string]any, len(f.Metadata)+3)
	for k, v := range f.Metadata {
		metadata[k] = v
	}
	if f.Repository != "" {
		metadata["repository"] = f.Repository
	}
	if f.URL != "" {
		metadata["url"] = f.URL
	}
	metadata["source"] = path

	return Document{Text: text, Metadata: metadata}
}

func (idx *LocalIndex) Add(docs ...Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		idx.docs = append(idx.docs, indexedDocument{doc: d, terms: termSet(d.Text)})
	}
}

func (idx *LocalIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

func (idx *LocalIndex) Search(ctx context.Context, query string, opts ...SearchOption) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	settings := NewSearchSettings(opts...)
	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return []Document{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]Document, 0)
	for _, d := range idx.docs {
		matched := 0
		for t := range queryTerms {
			if _, ok := d.terms[t]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		hit := d.doc
		hit.Score = float64(matched) / float64(len(queryTerms))
		hits = append(hits, hit)
	}

	return Rank(hits, settings), nil
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "for": {}, "i": {}, "in": {}, "is": {},
	"me": {}, "my": {}, "need": {}, "of": {}, "on": {}, "or": {}, "show": {},
	"the": {}, "to": {}, "want": {}, "with": {},
}

func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		terms[f] = struct{}{}
	}
	return terms
}
