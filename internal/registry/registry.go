package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no task exists for the requested id.
var ErrNotFound = errors.New("task not found")

// InvalidTransitionError signals an illegal state machine move. It is a
// programming error, never user input.
type InvalidTransitionError struct {
	ID   uuid.UUID
	From model.TaskStatus
	To   model.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task transition %s -> %s (task %s)", e.From, e.To, e.ID)
}

// Store persists tasks. FindByID must return ErrNotFound (possibly
// wrapped) for unknown ids; FindAll returns tasks in creation order.
type Store interface {
	Insert(ctx context.Context, task *model.EvaluationTask) error
	Update(ctx context.Context, task *model.EvaluationTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EvaluationTask, error)
	FindAll(ctx context.Context) ([]model.EvaluationTask, error)
}

// CreateInput carries the immutable inputs of a new task.
type CreateInput struct {
	CVHandle       string
	ReportHandle   string
	JobDescription string
}

const lockShards = 64

// Registry is the authoritative owner of task state. Mutations of a
// single task are serialized through a sharded lock keyed by task id;
// reads return snapshots and never block behind unrelated tasks.
type Registry struct {
	store  Store
	logger *zap.Logger
	locks  [lockShards]sync.Mutex
}

func New(store Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

func (r *Registry) lockFor(id uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(id[:])
	return &r.locks[h.Sum32()%lockShards]
}

// Create allocates a new task in the queued state.
func (r *Registry) Create(ctx context.Context, input CreateInput) (*model.EvaluationTask, error) {
	now := time.Now().UTC()
	task := &model.EvaluationTask{
		ID:             uuid.New(),
		Status:         model.StatusQueued,
		CVHandle:       input.CVHandle,
		ReportHandle:   input.ReportHandle,
		JobDescription: input.JobDescription,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.store.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	r.logger.Info("task created", zap.String("task_id", task.ID.String()))
	return task.Clone(), nil
}

// Get returns a consistent snapshot of the task.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*model.EvaluationTask, error) {
	task, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// List returns snapshots of all tasks in creation order.
func (r *Registry) List(ctx context.Context) ([]model.EvaluationTask, error) {
	return r.store.FindAll(ctx)
}

// MarkProcessing moves a queued task into processing.
func (r *Registry) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, model.StatusProcessing, nil, "")
}

// Complete moves a processing task into completed with its result.
func (r *Registry) Complete(ctx context.Context, id uuid.UUID, result *model.StructuredEvaluation) error {
	if result == nil {
		return fmt.Errorf("complete task %s: result is required", id)
	}
	return r.transition(ctx, id, model.StatusCompleted, result, "")
}

// Fail moves a processing task into failed with a human-readable summary.
func (r *Registry) Fail(ctx context.Context, id uuid.UUID, message string) error {
	if message == "" {
		message = "evaluation failed"
	}
	return r.transition(ctx, id, model.StatusFailed, nil, message)
}

func (r *Registry) transition(ctx context.Context, id uuid.UUID, to model.TaskStatus, result *model.StructuredEvaluation, errMsg string) error {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	task, err := r.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !task.Status.CanTransitionTo(to) {
		invalid := &InvalidTransitionError{ID: id, From: task.Status, To: to}
		r.logger.Error("task transition rejected",
			zap.String("task_id", id.String()),
			zap.String("from", string(invalid.From)),
			zap.String("to", string(invalid.To)),
		)
		return invalid
	}

	task.Status = to
	task.Result = result
	task.ErrorMessage = errMsg
	task.UpdatedAt = time.Now().UTC()

	if err := r.store.Update(ctx, task); err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}

	r.logger.Info("task transitioned",
		zap.String("task_id", id.String()),
		zap.String("status", string(to)),
	)
	return nil
}
