// Package store provides concurrency-safe persistence of execution records
// with snapshot-consistent reads. The memory store is the reference backend;
// the SQLite store satisfies the same contract for deployments that need the
// records to survive a restart.
package store

import (
	"context"
	"errors"

	"github.com/maios-ai/orchestrator/internal/model"
)

// ErrNotFound is returned when an execution is not found.
var ErrNotFound = errors.New("execution not found")

// ErrDuplicateKey is returned when Create collides with an existing execution id.
var ErrDuplicateKey = errors.New("duplicate execution id")

// List limit bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ClampLimit normalizes a list limit into [1, MaxListLimit], substituting the
// default for non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Stats holds aggregate execution statistics.
type Stats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for executions. Get and List
// return snapshots: deep copies that share no memory with subsequent writes.
type Store interface {
	Create(ctx context.Context, e *model.Execution) error
	Get(ctx context.Context, id string) (*model.Execution, error)
	Update(ctx context.Context, e *model.Execution) error
	List(ctx context.Context, statusFilter string, limit int) ([]*model.Execution, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
