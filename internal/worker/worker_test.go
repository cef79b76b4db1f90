package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maios-ai/orchestrator/internal/catalog"
)

func TestSimulatedCheckpoints(t *testing.T) {
	def := catalog.TaskDef{TaskID: "step", TaskType: "analysis.extract", DurationMS: 50, Tokens: 1200}

	var percents []int
	result, err := Simulated{}.Run(context.Background(), def, func(p int) {
		percents = append(percents, p)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []int{20, 40, 60, 80, 100}
	if len(percents) != len(want) {
		t.Fatalf("checkpoints = %v, want %v", percents, want)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Errorf("checkpoint[%d] = %d, want %d", i, percents[i], want[i])
		}
	}
	if result.TokensUsed != 1200 {
		t.Errorf("tokens = %d, want 1200", result.TokensUsed)
	}
}

func TestSimulatedHonorsCancellation(t *testing.T) {
	def := catalog.TaskDef{TaskID: "step", TaskType: "analysis.extract", DurationMS: 60000}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Simulated{}.Run(ctx, def, func(int) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled Run took %v, should return promptly", elapsed)
	}
}

func TestTaskErrorRecoverable(t *testing.T) {
	base := errors.New("model call failed")

	if !Recoverable(&TaskError{Err: base, Recoverable: true}) {
		t.Error("recoverable TaskError not recognized")
	}
	if Recoverable(&TaskError{Err: base}) {
		t.Error("non-recoverable TaskError reported recoverable")
	}
	if Recoverable(base) {
		t.Error("plain error reported recoverable")
	}
	// Wrapped TaskErrors keep their hint.
	wrapped := fmt.Errorf("task step: %w", &TaskError{Err: base, Recoverable: true})
	if !Recoverable(wrapped) {
		t.Error("wrapped recoverable TaskError not recognized")
	}
	if !errors.Is(wrapped, base) {
		t.Error("TaskError does not unwrap to its cause")
	}
}

type stubWorker struct{ name string }

func (w stubWorker) Run(context.Context, catalog.TaskDef, func(int)) (Result, error) {
	return Result{}, nil
}

func TestRegistryResolve(t *testing.T) {
	fallback := stubWorker{name: "fallback"}
	r := NewRegistry(fallback)

	parse := stubWorker{name: "parse"}
	r.Register("document.parse", parse)

	if got := r.Resolve("document.parse").(stubWorker); got.name != "parse" {
		t.Errorf("Resolve(document.parse) = %q, want parse", got.name)
	}
	if got := r.Resolve("analysis.extract").(stubWorker); got.name != "fallback" {
		t.Errorf("Resolve(analysis.extract) = %q, want fallback", got.name)
	}
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry(stubWorker{})
	r.Register("document.parse", stubWorker{})
	r.Register("analysis.extract", stubWorker{})

	types := r.Types()
	if len(types) != 2 || types[0] != "analysis.extract" || types[1] != "document.parse" {
		t.Errorf("Types() = %v, want sorted [analysis.extract document.parse]", types)
	}
}
