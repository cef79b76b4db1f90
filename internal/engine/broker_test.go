package engine

import (
	"testing"
	"time"

	"github.com/maios-ai/orchestrator/internal/model"
)

func snapshot(id string, progress int) *model.Execution {
	return &model.Execution{ExecutionID: id, Status: model.StatusRunning, OverallProgress: progress}
}

func TestBrokerPublishReachesSubscriber(t *testing.T) {
	b := NewBroker()

	ch, unsub := b.Subscribe("exec_a")
	defer unsub()

	b.Publish("exec_a", snapshot("exec_a", 20))

	select {
	case got := <-ch:
		if got.OverallProgress != 20 {
			t.Errorf("progress = %d, want 20", got.OverallProgress)
		}
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}
}

func TestBrokerIsolatesExecutions(t *testing.T) {
	b := NewBroker()

	chA, unsubA := b.Subscribe("exec_a")
	defer unsubA()
	chB, unsubB := b.Subscribe("exec_b")
	defer unsubB()

	b.Publish("exec_a", snapshot("exec_a", 40))

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatal("subscriber for exec_a got nothing")
	}
	select {
	case got := <-chB:
		t.Fatalf("subscriber for exec_b received %v", got)
	default:
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()

	ch, unsub := b.Subscribe("exec_a")
	unsub()

	b.Publish("exec_a", snapshot("exec_a", 60))

	select {
	case got, ok := <-ch:
		if ok {
			t.Fatalf("received %v after unsubscribe", got)
		}
	default:
	}
}

func TestBrokerCloseEndsSubscribers(t *testing.T) {
	b := NewBroker()

	ch, unsub := b.Subscribe("exec_a")
	defer unsub()

	b.Close("exec_a")

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// Publishing after close is a no-op, not a panic.
	b.Publish("exec_a", snapshot("exec_a", 80))
}

func TestBrokerLateSubscriberGetsClosedChannel(t *testing.T) {
	b := NewBroker()

	b.Close("exec_done")

	ch, unsub := b.Subscribe("exec_done")
	defer unsub()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got a value")
		}
	default:
		t.Fatal("late subscriber channel should already be closed")
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()

	ch, unsub := b.Subscribe("exec_a")
	defer unsub()

	// Publish well past the buffer; none of these may block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBufferSize*3; i++ {
			b.Publish("exec_a", snapshot("exec_a", i))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	if got := len(ch); got != subscriberBufferSize {
		t.Errorf("buffered snapshots = %d, want %d", got, subscriberBufferSize)
	}
}
