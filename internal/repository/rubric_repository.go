package repository

import (
	"context"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// RubricRepository stores rubric documents with their embeddings and
// serves nearest-neighbour retrieval through the pgvector operator.
type RubricRepository struct {
	db *gorm.DB
}

func NewRubricRepository(db *gorm.DB) *RubricRepository {
	return &RubricRepository{db: db}
}

func (r *RubricRepository) Insert(ctx context.Context, doc *model.RubricDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *RubricRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.RubricDocument{}).
		Where("category = ?", category).
		Count(&n).Error
	return n, err
}

// Search ranks documents of the category by embedding distance. Ties are
// broken by id so identical queries always rank identically.
func (r *RubricRepository) Search(ctx context.Context, embedding []float32, category string, k int) ([]model.RubricDocument, error) {
	var docs []model.RubricDocument
	vec := pgvector.NewVector(embedding)
	err := r.db.WithContext(ctx).Raw(`
        SELECT *
        FROM rubric_documents
        WHERE category = ?
        ORDER BY embedding <-> ?, id
        LIMIT ?
    `, category, vec, k).Scan(&docs).Error
	return docs, err
}
