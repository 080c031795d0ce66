package dto

import (
	"time"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/google/uuid"
)

// EvaluationTaskDTO is the public shape of a task. Result is present
// only for completed tasks, Error only for failed ones.
type EvaluationTaskDTO struct {
	ID        uuid.UUID                   `json:"id"`
	Status    model.TaskStatus            `json:"status"`
	Result    *model.StructuredEvaluation `json:"result,omitempty"`
	Error     string                      `json:"error,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

func FromTask(task *model.EvaluationTask) EvaluationTaskDTO {
	out := EvaluationTaskDTO{
		ID:        task.ID,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
	switch task.Status {
	case model.StatusCompleted:
		out.Result = task.Result
	case model.StatusFailed:
		out.Error = task.ErrorMessage
	}
	return out
}
