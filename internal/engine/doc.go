// Package engine provides the orchestration execution engine. It turns a
// submitted intent into a queued execution, launches one runner goroutine per
// execution to advance its task plan, and persists every observable state
// transition through the store so pollers always see a coherent, monotonic
// snapshot.
package engine
