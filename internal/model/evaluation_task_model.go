package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of an evaluation task.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition may leave the state.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving to next is a legal transition.
// The lifecycle is strictly one-directional:
// queued -> processing -> completed | failed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// EvaluationTask is one evaluation run. The registry owns every mutation;
// other components only hold snapshots.
type EvaluationTask struct {
	ID             uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	Status         TaskStatus            `gorm:"type:varchar(20);index" json:"status"`
	CVHandle       string                `gorm:"type:text" json:"cv_handle"`
	ReportHandle   string                `gorm:"type:text" json:"report_handle"`
	JobDescription string                `gorm:"type:text" json:"job_description"`
	Result         *StructuredEvaluation `gorm:"type:jsonb;serializer:json" json:"result,omitempty"`
	ErrorMessage   string                `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func (t *EvaluationTask) TableName() string {
	return "evaluation_tasks"
}

// Clone returns a snapshot copy. The Result pointer is shared because a
// StructuredEvaluation is immutable once assigned.
func (t *EvaluationTask) Clone() *EvaluationTask {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
