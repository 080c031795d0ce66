package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Rubric categories served by the context index.
const (
	CategoryCVScoring      = "cv-scoring"
	CategoryProjectScoring = "project-scoring"
)

// RubricDocument is one retrievable unit of scoring context. Documents
// are seeded at process start and never mutated afterwards.
type RubricDocument struct {
	ID        string          `gorm:"type:varchar(100);primaryKey" json:"id"`
	Title     string          `gorm:"type:varchar(200)" json:"title"`
	Content   string          `gorm:"type:text" json:"content"`
	Category  string          `gorm:"type:varchar(50);index" json:"category"`
	Embedding pgvector.Vector `gorm:"type:vector(3072)" json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

func (d *RubricDocument) TableName() string {
	return "rubric_documents"
}
