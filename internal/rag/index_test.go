package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEmbedder maps query text onto fixed vectors. Unknown text gets a
// default vector so seeding can embed arbitrary rubric content.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func doc(id, category string, embedding []float32) model.RubricDocument {
	return model.RubricDocument{
		ID:        id,
		Title:     id,
		Category:  category,
		Content:   fmt.Sprintf("content of %s", id),
		Embedding: pgvector.NewVector(embedding),
	}
}

func seededStore(t *testing.T, docs ...model.RubricDocument) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	for i := range docs {
		require.NoError(t, store.Insert(context.Background(), &docs[i]))
	}
	return store
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	store := seededStore(t,
		doc("far", model.CategoryCVScoring, []float32{0, 1, 0}),
		doc("near", model.CategoryCVScoring, []float32{1, 0, 0}),
		doc("middle", model.CategoryCVScoring, []float32{1, 1, 0}),
	)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"backend skills": {1, 0.1, 0},
	}}
	index := NewIndex(store, embedder, zap.NewNop())

	docs, err := index.Retrieve(context.Background(), "backend skills", model.CategoryCVScoring, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "near", docs[0].ID)
	assert.Equal(t, "middle", docs[1].ID)
}

func TestRetrieveIsDeterministic(t *testing.T) {
	// Identical embeddings force the tie-break, which must be stable.
	store := seededStore(t,
		doc("b", model.CategoryCVScoring, []float32{1, 0, 0}),
		doc("a", model.CategoryCVScoring, []float32{1, 0, 0}),
		doc("c", model.CategoryCVScoring, []float32{1, 0, 0}),
	)
	embedder := &stubEmbedder{}
	index := NewIndex(store, embedder, zap.NewNop())

	var first []string
	for i := 0; i < 5; i++ {
		docs, err := index.Retrieve(context.Background(), "query", model.CategoryCVScoring, 3)
		require.NoError(t, err)
		var ids []string
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		if first == nil {
			first = ids
			assert.Equal(t, []string{"a", "b", "c"}, ids)
			continue
		}
		assert.Equal(t, first, ids)
	}
}

func TestRetrieveFiltersByCategory(t *testing.T) {
	store := seededStore(t,
		doc("cv-doc", model.CategoryCVScoring, []float32{1, 0, 0}),
		doc("project-doc", model.CategoryProjectScoring, []float32{1, 0, 0}),
	)
	index := NewIndex(store, &stubEmbedder{}, zap.NewNop())

	docs, err := index.Retrieve(context.Background(), "query", model.CategoryProjectScoring, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "project-doc", docs[0].ID)
}

func TestRetrieveEmptyCategory(t *testing.T) {
	store := seededStore(t, doc("cv-doc", model.CategoryCVScoring, []float32{1, 0, 0}))
	index := NewIndex(store, &stubEmbedder{}, zap.NewNop())

	docs, err := index.Retrieve(context.Background(), "query", "unknown-category", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieveNonPositiveK(t *testing.T) {
	embedder := &stubEmbedder{}
	index := NewIndex(seededStore(t), embedder, zap.NewNop())

	docs, err := index.Retrieve(context.Background(), "query", model.CategoryCVScoring, 0)
	require.NoError(t, err)
	assert.Nil(t, docs)
	assert.Equal(t, 0, embedder.callCount())
}

func TestRetrieveRetriesThenGivesUp(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedding backend down")}
	index := NewIndex(NewMemoryStore(), embedder, zap.NewNop())

	_, err := index.Retrieve(context.Background(), "query", model.CategoryCVScoring, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context retrieval unavailable")
	assert.Equal(t, searchAttempts, embedder.callCount())
}

func TestRetrieveStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	embedder := &stubEmbedder{err: errors.New("embedding backend down")}
	index := NewIndex(NewMemoryStore(), embedder, zap.NewNop())

	_, err := index.Retrieve(ctx, "query", model.CategoryCVScoring, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, embedder.callCount())
}

func TestContextJoinsDocuments(t *testing.T) {
	docs := []model.RubricDocument{
		{Content: "first block"},
		{Content: "second block"},
	}
	assert.Equal(t, "first block\n\nsecond block", Context(docs))
	assert.Equal(t, "", Context(nil))
}

func TestSeedPopulatesBothCategories(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, Seed(context.Background(), store, &stubEmbedder{}, zap.NewNop()))

	cvCount, err := store.CountByCategory(context.Background(), model.CategoryCVScoring)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cvCount)

	projectCount, err := store.CountByCategory(context.Background(), model.CategoryProjectScoring)
	require.NoError(t, err)
	assert.Equal(t, int64(1), projectCount)
}

func TestSeedIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	embedder := &stubEmbedder{}
	require.NoError(t, Seed(context.Background(), store, embedder, zap.NewNop()))
	callsAfterFirst := embedder.callCount()

	require.NoError(t, Seed(context.Background(), store, embedder, zap.NewNop()))
	assert.Equal(t, callsAfterFirst, embedder.callCount())

	cvCount, err := store.CountByCategory(context.Background(), model.CategoryCVScoring)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cvCount)
}

func TestSeedLeavesPrepopulatedCategoryAlone(t *testing.T) {
	store := seededStore(t, doc("custom-cv-rubric", model.CategoryCVScoring, []float32{1, 0, 0}))
	embedder := &stubEmbedder{}
	require.NoError(t, Seed(context.Background(), store, embedder, zap.NewNop()))

	// The operator-provided cv-scoring document wins; only the empty
	// project-scoring category is seeded.
	cvCount, err := store.CountByCategory(context.Background(), model.CategoryCVScoring)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cvCount)

	projectCount, err := store.CountByCategory(context.Background(), model.CategoryProjectScoring)
	require.NoError(t, err)
	assert.Equal(t, int64(1), projectCount)
}

func TestSeedFailsWhenEmbeddingFails(t *testing.T) {
	store := NewMemoryStore()
	embedder := &stubEmbedder{err: errors.New("quota exceeded")}
	err := Seed(context.Background(), store, embedder, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed rubric")
}
