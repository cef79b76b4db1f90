package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/maios-ai/orchestrator/internal/model"
)

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps executions in a mutex-guarded map. Writes serialize on
// the store; reads and writes exchange deep copies, so a poller can never
// observe a half-applied update.
type MemoryStore struct {
	mu         sync.RWMutex
	executions map[string]*model.Execution
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		executions: make(map[string]*model.Execution),
	}
}

// Create inserts a new execution record.
func (s *MemoryStore) Create(_ context.Context, e *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.executions[e.ExecutionID]; exists {
		return fmt.Errorf("create execution %s: %w", e.ExecutionID, ErrDuplicateKey)
	}
	s.executions[e.ExecutionID] = e.Clone()
	return nil
}

// Get returns a snapshot of the execution with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

// Update replaces the stored record for e.ExecutionID wholesale.
func (s *MemoryStore) Update(_ context.Context, e *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[e.ExecutionID]; !ok {
		return fmt.Errorf("update execution %s: %w", e.ExecutionID, ErrNotFound)
	}
	s.executions[e.ExecutionID] = e.Clone()
	return nil
}

// List returns execution snapshots ordered by created_at descending,
// optionally filtered to one status, truncated to the clamped limit.
func (s *MemoryStore) List(_ context.Context, statusFilter string, limit int) ([]*model.Execution, error) {
	limit = ClampLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*model.Execution, 0, len(s.executions))
	for _, e := range s.executions {
		if statusFilter != "" && e.Status != statusFilter {
			continue
		}
		matches = append(matches, e)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		// ULIDs are time-ordered; break created_at ties on id for stability.
		return matches[i].ExecutionID > matches[j].ExecutionID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*model.Execution, len(matches))
	for i, e := range matches {
		out[i] = e.Clone()
	}
	return out, nil
}

// Delete removes the record with the given id, reporting whether it existed.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[id]; !ok {
		return false, nil
	}
	delete(s.executions, id)
	return true, nil
}

// GetStats returns aggregate counts and the average terminal duration.
func (s *MemoryStore) GetStats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{CountByStatus: make(map[string]int)}
	var durationSum, durationCount int
	for _, e := range s.executions {
		stats.Total++
		stats.CountByStatus[e.Status]++
		if e.Summary != nil {
			durationSum += e.Summary.TotalDurationMS
			durationCount++
		}
	}
	if durationCount > 0 {
		stats.AvgDurationMS = float64(durationSum) / float64(durationCount)
	}
	return stats, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
