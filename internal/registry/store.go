package registry

import (
	"context"
	"sync"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/google/uuid"
)

// MemoryStore is an ordered in-memory Store. It backs tests and
// single-process deployments without Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*model.EvaluationTask
	order []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[uuid.UUID]*model.EvaluationTask)}
}

func (s *MemoryStore) Insert(_ context.Context, task *model.EvaluationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	s.order = append(s.order, task.ID)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, task *model.EvaluationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*model.EvaluationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return task.Clone(), nil
}

func (s *MemoryStore) FindAll(_ context.Context) ([]model.EvaluationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.EvaluationTask, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id].Clone())
	}
	return out, nil
}
