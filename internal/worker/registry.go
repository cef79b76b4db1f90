package worker

import (
	"sort"
	"sync"
)

// Registry maps task types to the workers that execute them. Task types
// without a registered worker resolve to the fallback, so an execution plan
// can always run.
type Registry struct {
	mu       sync.RWMutex
	workers  map[string]Worker
	fallback Worker
}

// NewRegistry creates a registry with the given fallback worker.
func NewRegistry(fallback Worker) *Registry {
	return &Registry{
		workers:  make(map[string]Worker),
		fallback: fallback,
	}
}

// Register adds a worker for the given task type, replacing any existing one.
func (r *Registry) Register(taskType string, w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[taskType] = w
}

// Resolve returns the worker for the given task type, or the fallback when
// none is registered.
func (r *Registry) Resolve(taskType string) Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if w, ok := r.workers[taskType]; ok {
		return w
	}
	return r.fallback
}

// Types returns the explicitly registered task types, sorted for stable
// API responses.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.workers))
	for t := range r.workers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
