package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/fadilmartias/cv-evaluator/internal/model"
)

// MemoryStore ranks documents by cosine similarity in memory. It backs
// tests and deployments without a vector-enabled Postgres.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []model.RubricDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, doc *model.RubricDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *MemoryStore) CountByCategory(_ context.Context, category string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, doc := range s.docs {
		if doc.Category == category {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Search(_ context.Context, embedding []float32, category string, k int) ([]model.RubricDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   model.RubricDocument
		score float64
	}

	var candidates []scored
	for _, doc := range s.docs {
		if doc.Category != category {
			continue
		}
		candidates = append(candidates, scored{
			doc:   doc,
			score: cosine(embedding, doc.Embedding.Slice()),
		})
	}

	// Stable ranking: score descending, id ascending on ties.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].doc.ID < candidates[j].doc.ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]model.RubricDocument, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.doc)
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
