package model

import "time"

// Execution status constants.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Task status constants.
const (
	TaskPending   = "pending"
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskSkipped   = "skipped"
)

// validTransitions maps each execution status to the set of statuses it may
// transition to. Terminal statuses have no outgoing transitions.
var validTransitions = map[string]map[string]bool{
	StatusQueued: {
		StatusRunning:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusPartial:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
}

// ValidTransition reports whether transitioning from one execution status to
// another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether an execution status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known execution status value.
func ValidStatus(s string) bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ExecutionRequest is a caller's intent to run a task plan.
type ExecutionRequest struct {
	Intent          string         `json:"intent"`
	TaskType        string         `json:"task_type"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	DocumentContent string         `json:"document_content,omitempty"`
	UserID          string         `json:"user_id,omitempty"`
}

// TaskStatus tracks one step of an execution's plan. The task_id, task_type
// and description fields are fixed at creation from the catalog; everything
// else is written by the execution's runner.
type TaskStatus struct {
	TaskID      string     `json:"task_id"`
	TaskType    string     `json:"task_type"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TokensUsed  int        `json:"tokens_used,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Summary aggregates the totals of a finished execution.
type Summary struct {
	TasksTotal      int     `json:"tasks_total"`
	TasksCompleted  int     `json:"tasks_completed"`
	TasksFailed     int     `json:"tasks_failed"`
	TotalDurationMS int     `json:"total_duration_ms"`
	TotalTokens     int     `json:"total_tokens"`
	EstimatedCost   float64 `json:"estimated_cost"`
}

// Execution is one end-to-end run of a task plan derived from a submitted
// intent. The task list is fixed in length and order at creation; a single
// runner goroutine owns all mutation after that.
type Execution struct {
	ExecutionID     string       `json:"execution_id"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	Tasks           []TaskStatus `json:"tasks"`
	CurrentTask     string       `json:"current_task,omitempty"`
	OverallProgress int          `json:"overall_progress"`
	Message         string       `json:"message,omitempty"`
	Summary         *Summary     `json:"summary,omitempty"`
	Artifacts       []Artifact   `json:"artifacts"`
	Errors          []string     `json:"errors"`
}

// Clone returns a deep copy of the execution. Stores hand out clones so that
// concurrent pollers never share memory with the runner's working record.
func (e *Execution) Clone() *Execution {
	c := *e
	c.StartedAt = copyTime(e.StartedAt)
	c.CompletedAt = copyTime(e.CompletedAt)

	if e.Tasks != nil {
		c.Tasks = make([]TaskStatus, len(e.Tasks))
		for i, t := range e.Tasks {
			t.StartedAt = copyTime(t.StartedAt)
			t.CompletedAt = copyTime(t.CompletedAt)
			c.Tasks[i] = t
		}
	}
	if e.Artifacts != nil {
		c.Artifacts = append([]Artifact(nil), e.Artifacts...)
	}
	if e.Errors != nil {
		c.Errors = append([]string(nil), e.Errors...)
	}
	if e.Summary != nil {
		s := *e.Summary
		c.Summary = &s
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
