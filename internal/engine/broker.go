package engine

import (
	"sync"

	"github.com/maios-ai/orchestrator/internal/model"
)

// subscriberBufferSize is the channel buffer for each progress subscriber.
// Snapshots are dropped if a subscriber falls this far behind; a poll of the
// status endpoint always has the latest committed state anyway.
const subscriberBufferSize = 16

// Broker fans committed execution snapshots out to per-execution subscribers.
// It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after an execution finishes) receive a closed channel instead
// of blocking forever.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*progressTopic
}

type progressTopic struct {
	subs   map[int]chan *model.Execution
	nextID int
	closed bool
}

// NewBroker creates a new progress broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*progressTopic),
	}
}

// Subscribe returns a channel that receives snapshots for the given execution
// and an unsubscribe function. If the execution has already finished (Close
// was called), the returned channel is immediately closed.
func (b *Broker) Subscribe(executionID string) (<-chan *model.Execution, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[executionID]
	if !ok {
		t = &progressTopic{subs: make(map[int]chan *model.Execution)}
		b.topics[executionID] = t
	}

	ch := make(chan *model.Execution, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a snapshot to all subscribers of the given execution.
// Snapshots are dropped for subscribers whose buffers are full.
func (b *Broker) Publish(executionID string, snapshot *model.Execution) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[executionID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- snapshot:
		default:
			// Drop for slow subscribers to avoid blocking the runner.
		}
	}
}

// Close signals that no more snapshots will be published for the given
// execution. All subscriber channels are closed and future Subscribe calls
// return a closed channel.
func (b *Broker) Close(executionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[executionID]
	if !ok {
		// Closed marker for late subscribers.
		b.topics[executionID] = &progressTopic{subs: make(map[int]chan *model.Execution), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
