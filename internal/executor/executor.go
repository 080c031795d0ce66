package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fadilmartias/cv-evaluator/internal/model"
	"github.com/fadilmartias/cv-evaluator/internal/registry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner is the evaluation pipeline boundary.
type Runner interface {
	Run(ctx context.Context, task *model.EvaluationTask) (*model.StructuredEvaluation, error)
}

// Executor runs queued tasks in the background, one goroutine per task.
// It performs no retries of its own; its only failure-handling duty is
// to convert whatever escapes the pipeline into a terminal failed state
// so no task is ever stuck in processing.
type Executor struct {
	registry *registry.Registry
	pipeline Runner
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func New(reg *registry.Registry, pipeline Runner, logger *zap.Logger) *Executor {
	return &Executor{registry: reg, pipeline: pipeline, logger: logger}
}

// Submit schedules the task for background execution and returns
// immediately.
func (e *Executor) Submit(id uuid.UUID) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(context.Background(), id)
	}()
}

// Wait blocks until all in-flight tasks reach a terminal state.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Resume re-submits tasks that were still queued when the process went
// down. Tasks interrupted mid-processing stay as they are; re-running
// them blindly could double-bill oracle calls for work the operator may
// prefer to inspect.
func (e *Executor) Resume(ctx context.Context) error {
	tasks, err := e.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	resumed := 0
	for _, task := range tasks {
		if task.Status != model.StatusQueued {
			continue
		}
		e.Submit(task.ID)
		resumed++
	}
	if resumed > 0 {
		e.logger.Info("resumed queued tasks", zap.Int("count", resumed))
	}
	return nil
}

func (e *Executor) run(ctx context.Context, id uuid.UUID) {
	log := e.logger.With(zap.String("task_id", id.String()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.Any("panic", r))
			if err := e.registry.Fail(ctx, id, "internal evaluation error"); err != nil {
				log.Error("failed to record panic failure", zap.Error(err))
			}
		}
	}()

	if err := e.registry.MarkProcessing(ctx, id); err != nil {
		log.Error("could not mark task processing", zap.Error(err))
		return
	}

	task, err := e.registry.Get(ctx, id)
	if err != nil {
		log.Error("could not load task", zap.Error(err))
		e.fail(ctx, log, id, "task could not be loaded")
		return
	}

	result, err := e.pipeline.Run(ctx, task)
	if err != nil {
		// Detailed diagnostics (raw responses, attempt counts) stay in
		// operator logs; the stored message is a concise summary.
		log.Error("evaluation failed", zap.Error(err))
		e.fail(ctx, log, id, summarize(err))
		return
	}

	if err := e.registry.Complete(ctx, id, result); err != nil {
		log.Error("could not complete task", zap.Error(err))
		return
	}
	log.Info("evaluation completed")
}

func (e *Executor) fail(ctx context.Context, log *zap.Logger, id uuid.UUID, message string) {
	if err := e.registry.Fail(ctx, id, message); err != nil {
		log.Error("could not mark task failed", zap.Error(err))
	}
}

// summarize trims an internal error chain down to its first segment so
// users see what failed without raw oracle output.
func summarize(err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, ':'); idx > 0 {
		return msg[:idx] + " failed"
	}
	return msg
}
