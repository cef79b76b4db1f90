package model

import (
	"regexp"
	"testing"
	"time"
)

// executionIDPattern matches "exec_" followed by a lowercase Crockford Base32 ULID.
var executionIDPattern = regexp.MustCompile(`^exec_[0-9abcdefghjkmnpqrstvwxyz]{26}$`)

func TestNewExecutionIDFormat(t *testing.T) {
	id := NewExecutionID()
	if !executionIDPattern.MatchString(id) {
		t.Errorf("NewExecutionID() = %q, does not match exec_<ulid> format", id)
	}
}

func TestNewExecutionIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewExecutionID()
		if seen[id] {
			t.Fatalf("NewExecutionID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestStatusConstants(t *testing.T) {
	statuses := []struct {
		constant string
		expected string
	}{
		{StatusQueued, "queued"},
		{StatusRunning, "running"},
		{StatusCompleted, "completed"},
		{StatusPartial, "partial"},
		{StatusFailed, "failed"},
		{StatusCancelled, "cancelled"},
	}
	for _, s := range statuses {
		if s.constant != s.expected {
			t.Errorf("status constant = %q, want %q", s.constant, s.expected)
		}
	}
}

func TestTaskStatusConstants(t *testing.T) {
	statuses := []struct {
		constant string
		expected string
	}{
		{TaskPending, "pending"},
		{TaskRunning, "running"},
		{TaskCompleted, "completed"},
		{TaskFailed, "failed"},
		{TaskSkipped, "skipped"},
	}
	for _, s := range statuses {
		if s.constant != s.expected {
			t.Errorf("task status constant = %q, want %q", s.constant, s.expected)
		}
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusCancelled, true},
		{StatusQueued, StatusCompleted, false},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusPartial, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusQueued, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
		{StatusPartial, StatusCompleted, false},
		{StatusCancelled, StatusRunning, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusCompleted, StatusPartial, StatusFailed, StatusCancelled} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
	}
	for _, s := range []string{StatusQueued, StatusRunning, "bogus"} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = true, want false", s)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	started := time.Now().UTC()
	orig := started
	e := &Execution{
		ExecutionID: NewExecutionID(),
		Status:      StatusRunning,
		CreatedAt:   time.Now().UTC(),
		StartedAt:   &started,
		Tasks: []TaskStatus{
			{TaskID: "parse_document", Status: TaskRunning, Progress: 40, StartedAt: &started},
			{TaskID: "extract_requirements", Status: TaskPending},
		},
		CurrentTask:     "parse_document",
		OverallProgress: 8,
		Artifacts:       []Artifact{},
		Errors:          []string{},
	}

	snap := e.Clone()

	// Mutations on the original must not show through the clone.
	e.Tasks[0].Progress = 100
	e.Tasks[0].Status = TaskCompleted
	e.OverallProgress = 20
	e.Errors = append(e.Errors, "boom")
	// Writes through the shared pointer; started itself changes with it.
	*e.StartedAt = started.Add(time.Hour)

	if snap.Tasks[0].Progress != 40 {
		t.Errorf("clone task progress = %d, want 40", snap.Tasks[0].Progress)
	}
	if snap.Tasks[0].Status != TaskRunning {
		t.Errorf("clone task status = %q, want running", snap.Tasks[0].Status)
	}
	if snap.OverallProgress != 8 {
		t.Errorf("clone overall progress = %d, want 8", snap.OverallProgress)
	}
	if len(snap.Errors) != 0 {
		t.Errorf("clone errors = %v, want empty", snap.Errors)
	}
	if !snap.StartedAt.Equal(orig) {
		t.Errorf("clone started_at = %v, want %v", snap.StartedAt, orig)
	}
	if !snap.Tasks[0].StartedAt.Equal(orig) {
		t.Errorf("clone task started_at = %v, want %v", snap.Tasks[0].StartedAt, orig)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		budget  int
		want    string
	}{
		{"under budget", "short", 10, "short"},
		{"at budget", "exact", 5, "exact"},
		{"over budget", "0123456789", 4, "0123..."},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.content, tt.budget); got != tt.want {
				t.Errorf("Preview(%q, %d) = %q, want %q", tt.content, tt.budget, got, tt.want)
			}
		})
	}
}
