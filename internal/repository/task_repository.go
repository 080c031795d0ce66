package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/fadilmartias/cv-evaluator/internal/registry"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskRepository is the Postgres-backed registry.Store. Task rows
// survive restarts so queued work can be resumed at boot.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Insert(ctx context.Context, task *model.EvaluationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) Update(ctx context.Context, task *model.EvaluationTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.EvaluationTask, error) {
	var task model.EvaluationTask
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) FindAll(ctx context.Context) ([]model.EvaluationTask, error) {
	var tasks []model.EvaluationTask
	err := r.db.WithContext(ctx).Order("created_at asc").Find(&tasks).Error
	return tasks, err
}
