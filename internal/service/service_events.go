package service

import (
	"sync"
	"time"
)

// EventType classifies a sync lifecycle event.
type EventType string

const (
	// EventSyncStarted fires when a drain begins.
	EventSyncStarted EventType = "sync_started"
	// EventItemSynced fires after each successfully applied mutation.
	EventItemSynced EventType = "item_synced"
	// EventSyncFinished fires when a drain runs the queue empty.
	EventSyncFinished EventType = "sync_finished"
	// EventSyncFailed fires when an item's retry budget is spent or the
	// drain aborts on a storage error.
	EventSyncFailed EventType = "sync_failed"
	// EventConflictDetected fires when the server rejects a staged
	// mutation and the design freezes in the conflict state.
	EventConflictDetected EventType = "conflict_detected"
)

// Event describes one sync lifecycle occurrence.
type Event struct {
	Type EventType

	// DesignID is the affected design's local id, empty for drain-level
	// events.
	DesignID string

	// Pending is the number of unsent queue items after this event.
	Pending int

	// Err carries the failure for EventSyncFailed events.
	Err error

	At time.Time
}

// EventBus fans sync events out to subscribers. Publishing happens
// synchronously on the drain goroutine, so callbacks must return quickly.
type EventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a handle that removes it.
func (b *EventBus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers e to every current subscriber.
func (b *EventBus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, fn := range b.subs {
		fn(e)
	}
}
