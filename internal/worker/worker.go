// Package worker defines the per-task unit of work. Each task type maps to a
// Worker through the Registry; the reference deployment registers only the
// simulated worker, which stands in for real model and document-generation
// calls while preserving the suspend-checkpoint-persist discipline.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/maios-ai/orchestrator/internal/catalog"
)

// progressSteps is the number of checkpoints a simulated task reports,
// spaced equally across its nominal duration.
const progressSteps = 5

// Result holds what a worker reports after running one task.
type Result struct {
	TokensUsed int
}

// Worker executes a single task from an execution plan. Implementations call
// checkpoint with the task-local percent complete after each unit of work;
// the engine persists a snapshot on every checkpoint. Run must honor ctx
// cancellation at every suspension point.
type Worker interface {
	Run(ctx context.Context, def catalog.TaskDef, checkpoint func(percent int)) (Result, error)
}

// TaskError wraps a task failure with a continuation hint. The runner
// continues past a recoverable failure and ends the run on anything else.
type TaskError struct {
	Err         error
	Recoverable bool
}

func (e *TaskError) Error() string { return e.Err.Error() }

func (e *TaskError) Unwrap() error { return e.Err }

// Recoverable reports whether err is a task failure the runner may continue past.
func Recoverable(err error) bool {
	var te *TaskError
	return errors.As(err, &te) && te.Recoverable
}

// Simulated sleeps through a task's nominal duration in equal steps,
// checkpointing after each one.
type Simulated struct{}

func (Simulated) Run(ctx context.Context, def catalog.TaskDef, checkpoint func(percent int)) (Result, error) {
	stepWait := time.Duration(def.DurationMS) * time.Millisecond / progressSteps

	for step := 1; step <= progressSteps; step++ {
		select {
		case <-time.After(stepWait):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
		checkpoint(step * 100 / progressSteps)
	}

	return Result{TokensUsed: def.Tokens}, nil
}
