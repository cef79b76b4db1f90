package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maios-ai/orchestrator/internal/artifact"
	"github.com/maios-ai/orchestrator/internal/catalog"
	"github.com/maios-ai/orchestrator/internal/model"
	"github.com/maios-ai/orchestrator/internal/store"
	"github.com/maios-ai/orchestrator/internal/worker"
)

// DefaultExecutionTimeout is the wall-clock budget for a whole execution
// when none is configured.
const DefaultExecutionTimeout = 10 * time.Minute

// minTaskBudget is the floor for a single task's wall-clock budget.
const minTaskBudget = time.Second

// costPerToken is the fixed linear rate for the summary's cost estimate.
const costPerToken = 0.00001

// ErrCancelled is the cancellation cause recorded when Cancel stops a run.
var ErrCancelled = errors.New("execution cancelled")

var (
	errExecutionTimeout = errors.New("execution timed out")
	errTaskTimeout      = errors.New("task timed out")
)

// Engine orchestrates asynchronous execution of task plans. Each execution is
// owned by exactly one runner goroutine; all reads go through the store.
type Engine struct {
	store     store.Store
	catalog   *catalog.Catalog
	workers   *worker.Registry
	generator artifact.Generator
	logger    *slog.Logger
	broker    *Broker

	executionTimeout time.Duration

	wg      sync.WaitGroup
	mu      sync.Mutex
	cancels map[string]context.CancelCauseFunc
}

// NewEngine creates a new execution engine.
func NewEngine(s store.Store, cat *catalog.Catalog, workers *worker.Registry, gen artifact.Generator, logger *slog.Logger) *Engine {
	return &Engine{
		store:            s,
		catalog:          cat,
		workers:          workers,
		generator:        gen,
		logger:           logger,
		broker:           NewBroker(),
		executionTimeout: DefaultExecutionTimeout,
		cancels:          make(map[string]context.CancelCauseFunc),
	}
}

// SetExecutionTimeout overrides the per-execution wall-clock budget.
// Call before submitting executions.
func (e *Engine) SetExecutionTimeout(d time.Duration) {
	if d > 0 {
		e.executionTimeout = d
	}
}

// Broker returns the engine's progress broker for SSE subscription.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Execute resolves the request's task plan, persists a queued execution, and
// launches a detached runner. It returns as soon as the create commits; no
// task work happens on the caller's goroutine. Unknown task types resolve to
// the default workflow rather than erroring.
func (e *Engine) Execute(ctx context.Context, req *model.ExecutionRequest) (*model.Execution, error) {
	defs := e.catalog.Resolve(req.TaskType)

	tasks := make([]model.TaskStatus, len(defs))
	for i, d := range defs {
		tasks[i] = model.TaskStatus{
			TaskID:      d.TaskID,
			TaskType:    d.TaskType,
			Description: d.Description,
			Status:      model.TaskPending,
		}
	}

	exec := &model.Execution{
		ExecutionID: model.NewExecutionID(),
		Status:      model.StatusQueued,
		CreatedAt:   time.Now().UTC(),
		Tasks:       tasks,
		Message:     "Execution queued",
		Artifacts:   []model.Artifact{},
		Errors:      []string{},
	}

	if err := e.store.Create(ctx, exec); err != nil {
		if !errors.Is(err, store.ErrDuplicateKey) {
			return nil, fmt.Errorf("create execution: %w", err)
		}
		// ULID collisions should not happen in practice; regenerate once
		// before giving up.
		exec.ExecutionID = model.NewExecutionID()
		if err := e.store.Create(ctx, exec); err != nil {
			return nil, fmt.Errorf("create execution: %w", err)
		}
	}

	runCtx, cancel := context.WithCancelCause(context.Background())
	runCtx, stopTimeout := context.WithTimeoutCause(runCtx, e.executionTimeout, errExecutionTimeout)

	e.mu.Lock()
	e.cancels[exec.ExecutionID] = cancel
	e.mu.Unlock()

	// The runner operates on copies so it shares no memory with the caller.
	working := exec.Clone()
	reqCopy := *req

	e.wg.Go(func() {
		defer stopTimeout()
		defer e.release(working.ExecutionID)
		defer e.broker.Close(working.ExecutionID)
		e.run(runCtx, working, defs, &reqCopy)
	})

	return exec, nil
}

// Cancel requests cancellation of a running execution. The runner observes
// the signal at its next checkpoint boundary. Returns false when no runner is
// active for the id.
func (e *Engine) Cancel(executionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancel, ok := e.cancels[executionID]
	if !ok {
		return false
	}
	cancel(ErrCancelled)
	return true
}

// GetStatus returns the current snapshot of an execution.
func (e *Engine) GetStatus(ctx context.Context, executionID string) (*model.Execution, error) {
	return e.store.Get(ctx, executionID)
}

// ListExecutions returns execution snapshots, optionally filtered by status,
// newest first.
func (e *Engine) ListExecutions(ctx context.Context, statusFilter string, limit int) ([]*model.Execution, error) {
	return e.store.List(ctx, statusFilter, limit)
}

// Wait blocks until all in-flight runner goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) release(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.cancels[executionID]; ok {
		cancel(nil)
		delete(e.cancels, executionID)
	}
}

// run drives one execution from running to a terminal state. ctx carries the
// cancellation signal and the execution-level deadline; store writes use a
// background context so the final transition can still be persisted after
// cancellation.
func (e *Engine) run(ctx context.Context, exec *model.Execution, defs []catalog.TaskDef, req *model.ExecutionRequest) {
	start := time.Now()
	startedAt := start.UTC()
	exec.Status = model.StatusRunning
	exec.StartedAt = &startedAt
	exec.Message = "Execution started"
	if !e.persist(exec) {
		return
	}

	var (
		totalTokens int
		completed   int
		failed      int
		timedOut    bool
	)
	total := len(defs)

	for i := range defs {
		def := defs[i]

		// Checkpoint boundary: honor cancellation and the execution deadline
		// before starting the next task.
		if ctx.Err() != nil {
			e.finishInterrupted(exec, start, context.Cause(ctx), totalTokens, completed, failed)
			return
		}

		task := &exec.Tasks[i]
		taskStart := time.Now().UTC()
		task.Status = model.TaskRunning
		task.StartedAt = &taskStart
		exec.CurrentTask = task.TaskID
		exec.Message = "Running: " + def.Description
		if !e.persist(exec) {
			return
		}

		w := e.workers.Resolve(def.TaskType)
		budget := taskBudget(def)
		taskCtx, stopTask := context.WithTimeoutCause(ctx, budget, errTaskTimeout)

		// The checkpoint callback commits a snapshot after every progress
		// increment. Both progress fields only ever move forward.
		var checkpointErr error
		result, err := w.Run(taskCtx, def, func(percent int) {
			if checkpointErr != nil {
				return
			}
			if percent > task.Progress {
				task.Progress = percent
			}
			if overall := (i*100 + task.Progress) / total; overall > exec.OverallProgress {
				exec.OverallProgress = overall
			}
			if uerr := e.store.Update(context.Background(), exec); uerr != nil {
				checkpointErr = uerr
				return
			}
			e.broker.Publish(exec.ExecutionID, exec.Clone())
		})
		stopTask()

		if checkpointErr != nil {
			e.failOnWriteError(exec, checkpointErr)
			return
		}

		taskEnd := time.Now().UTC()

		if err != nil {
			// An execution-level cancel or deadline also cancels taskCtx;
			// distinguish it from a task-local failure or timeout.
			if ctx.Err() != nil {
				e.finishInterrupted(exec, start, context.Cause(ctx), totalTokens, completed, failed)
				return
			}

			msg := err.Error()
			if errors.Is(context.Cause(taskCtx), errTaskTimeout) {
				timedOut = true
				msg = fmt.Sprintf("task %s timed out after %s", def.TaskID, budget)
			}

			task.Status = model.TaskFailed
			task.CompletedAt = &taskEnd
			task.Error = msg
			exec.Errors = append(exec.Errors, fmt.Sprintf("%s: %s", def.TaskID, msg))
			exec.CurrentTask = ""
			failed++

			e.logger.Error("task failed",
				"execution_id", exec.ExecutionID,
				"task_id", def.TaskID,
				"error", msg,
			)

			if !timedOut && worker.Recoverable(err) {
				if !e.persist(exec) {
					return
				}
				continue
			}

			// Non-recoverable: the rest of the plan cannot run.
			skipRemaining(exec)
			if !e.persist(exec) {
				return
			}
			break
		}

		task.Status = model.TaskCompleted
		task.CompletedAt = &taskEnd
		task.Progress = 100
		task.TokensUsed = result.TokensUsed
		totalTokens += result.TokensUsed
		completed++
		if !e.persist(exec) {
			return
		}
	}

	// Artifacts are produced exactly once, after the last task, and only when
	// the whole plan succeeded. They land in a single atomic persist with the
	// terminal transition.
	if failed == 0 {
		if ctx.Err() != nil {
			e.finishInterrupted(exec, start, context.Cause(ctx), totalTokens, completed, failed)
			return
		}
		arts, err := e.generator.Generate(ctx, exec.ExecutionID, req)
		if err != nil {
			exec.Errors = append(exec.Errors, fmt.Sprintf("artifact generation: %v", err))
			e.logger.Error("artifact generation failed",
				"execution_id", exec.ExecutionID,
				"error", err,
			)
		} else {
			exec.Artifacts = append(exec.Artifacts, arts...)
		}
	}

	status := terminalStatus(completed, failed, timedOut)
	message := "Execution completed successfully"
	switch status {
	case model.StatusPartial:
		message = fmt.Sprintf("Execution finished with %d failed task(s)", failed)
	case model.StatusFailed:
		message = "Execution failed"
	}
	if failed == 0 && len(exec.Artifacts) == 0 {
		// All tasks succeeded but the generator could not deliver.
		status = model.StatusPartial
		message = "Execution finished without artifacts"
	}

	e.finish(exec, start, status, message, totalTokens, completed, failed)
}

// persist commits the current state of the execution and publishes a snapshot
// to pollers on the stream. A write failure is fatal to the runner: it logs,
// makes a best-effort final failed write, and reports false.
func (e *Engine) persist(exec *model.Execution) bool {
	if err := e.store.Update(context.Background(), exec); err != nil {
		e.logger.Error("persist execution",
			"execution_id", exec.ExecutionID,
			"error", err,
		)
		e.failOnWriteError(exec, err)
		return false
	}
	e.broker.Publish(exec.ExecutionID, exec.Clone())
	return true
}

// failOnWriteError marks the execution failed after a store write failure.
// The final write is best-effort; if it also fails there is nothing more the
// runner can safely do.
func (e *Engine) failOnWriteError(exec *model.Execution, cause error) {
	now := time.Now().UTC()
	skipRemaining(exec)
	exec.Status = model.StatusFailed
	exec.CompletedAt = &now
	exec.CurrentTask = ""
	exec.Message = "Execution failed: persistence error"
	exec.Errors = append(exec.Errors, fmt.Sprintf("store write: %v", cause))

	if err := e.store.Update(context.Background(), exec); err != nil {
		e.logger.Error("final write after store failure",
			"execution_id", exec.ExecutionID,
			"error", err,
		)
	}
}

// finishInterrupted ends a run that was cancelled or hit its wall-clock
// budget. The in-flight task and everything after it are marked skipped.
func (e *Engine) finishInterrupted(exec *model.Execution, start time.Time, cause error, totalTokens, completed, failed int) {
	skipRemaining(exec)

	status := model.StatusFailed
	message := "Execution failed"
	if errors.Is(cause, ErrCancelled) {
		status = model.StatusCancelled
		message = "Execution cancelled"
	} else if errors.Is(cause, errExecutionTimeout) {
		msg := fmt.Sprintf("execution timed out after %s", e.executionTimeout)
		exec.Errors = append(exec.Errors, msg)
		message = "Execution failed: " + msg
	}

	e.finish(exec, start, status, message, totalTokens, completed, failed)
}

// finish applies the terminal transition and persists it.
func (e *Engine) finish(exec *model.Execution, start time.Time, status, message string, totalTokens, completed, failed int) {
	now := time.Now().UTC()
	exec.Summary = newSummary(exec, start, totalTokens, completed, failed)
	exec.Status = status
	exec.CompletedAt = &now
	exec.CurrentTask = ""
	exec.Message = message
	if status != model.StatusCancelled {
		exec.OverallProgress = 100
	}

	if err := e.store.Update(context.Background(), exec); err != nil {
		e.logger.Error("persist terminal execution",
			"execution_id", exec.ExecutionID,
			"error", err,
		)
		return
	}
	e.broker.Publish(exec.ExecutionID, exec.Clone())

	e.logger.Info("execution finished",
		"execution_id", exec.ExecutionID,
		"status", status,
		"tasks_completed", completed,
		"tasks_failed", failed,
		"duration_ms", exec.Summary.TotalDurationMS,
	)
}

func newSummary(exec *model.Execution, start time.Time, totalTokens, completed, failed int) *model.Summary {
	return &model.Summary{
		TasksTotal:      len(exec.Tasks),
		TasksCompleted:  completed,
		TasksFailed:     failed,
		TotalDurationMS: int(time.Since(start).Milliseconds()),
		TotalTokens:     totalTokens,
		EstimatedCost:   float64(totalTokens) * costPerToken,
	}
}

// terminalStatus maps the run's outcome counts to a terminal execution status.
// A timeout is always a failure; otherwise failures downgrade the run to
// partial as long as it produced at least one completed task.
func terminalStatus(completed, failed int, timedOut bool) string {
	switch {
	case timedOut:
		return model.StatusFailed
	case failed == 0:
		return model.StatusCompleted
	case completed > 0:
		return model.StatusPartial
	default:
		return model.StatusFailed
	}
}

// skipRemaining marks the in-flight task and all pending tasks as skipped.
func skipRemaining(exec *model.Execution) {
	now := time.Now().UTC()
	for i := range exec.Tasks {
		t := &exec.Tasks[i]
		switch t.Status {
		case model.TaskRunning:
			t.Status = model.TaskSkipped
			t.CompletedAt = &now
		case model.TaskPending:
			t.Status = model.TaskSkipped
		}
	}
}

// taskBudget is the wall-clock budget for one task: twice its nominal
// duration, with a floor so very short tasks are not flagged spuriously.
func taskBudget(def catalog.TaskDef) time.Duration {
	budget := 2 * time.Duration(def.DurationMS) * time.Millisecond
	if budget < minTaskBudget {
		budget = minTaskBudget
	}
	return budget
}
