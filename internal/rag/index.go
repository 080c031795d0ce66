package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"go.uber.org/zap"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Store ranks rubric documents of a category by similarity to the
// query embedding. An empty category yields an empty result, not an
// error.
type Store interface {
	Search(ctx context.Context, embedding []float32, category string, k int) ([]model.RubricDocument, error)
}

const (
	searchAttempts = 3
	searchDelay    = 200 * time.Millisecond
)

// Index serves retrieval-augmented context. It is read-only after
// seeding and safe for unlimited concurrent readers.
type Index struct {
	store    Store
	embedder Embedder
	logger   *zap.Logger
}

func NewIndex(store Store, embedder Embedder, logger *zap.Logger) *Index {
	return &Index{store: store, embedder: embedder, logger: logger}
}

// Retrieve returns the top-k documents of the category ranked by
// similarity to the query. Store and embedding failures are retried a
// few times; callers fall back to an empty context when the error
// persists.
func (ix *Index) Retrieve(ctx context.Context, query, category string, k int) ([]model.RubricDocument, error) {
	if k <= 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 1; attempt <= searchAttempts; attempt++ {
		if attempt > 1 {
			ix.logger.Warn("retrying context retrieval",
				zap.Int("attempt", attempt),
				zap.String("category", category),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(searchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		docs, err := ix.retrieve(ctx, query, category, k)
		if err != nil {
			lastErr = err
			continue
		}
		return docs, nil
	}

	return nil, fmt.Errorf("context retrieval unavailable: %w", lastErr)
}

func (ix *Index) retrieve(ctx context.Context, query, category string, k int) ([]model.RubricDocument, error) {
	embedding, err := ix.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	docs, err := ix.store.Search(ctx, embedding, category, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", category, err)
	}
	return docs, nil
}

// Context joins document contents into one prompt block.
func Context(docs []model.RubricDocument) string {
	out := ""
	for i, doc := range docs {
		if i > 0 {
			out += "\n\n"
		}
		out += doc.Content
	}
	return out
}
