package controller

import (
	"sync"
	"time"
)

// UI signal event types.
const (
	EventUpdateAvailable  = "update-available"
	EventInstallAvailable = "install-available"
	EventConnectivity     = "connectivity"
	EventReload           = "reload"
)

// eventBuffer is the per-subscriber channel capacity. Signals to a stalled
// subscriber are dropped rather than blocking the controller.
const eventBuffer = 16

// Event is one UI signal.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventBus fans UI signals out to subscribers. All cross-component
// notification from the controller goes through this one mechanism.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextID      int
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[int]chan Event)}
}

// Subscribe registers an event channel. The returned func unsubscribes
// and closes the channel.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, eventBuffer)
	b.subscribers[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
		b.mu.Unlock()
	}
}

// Publish delivers an event to every subscriber, non-blocking.
func (b *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.mu.Lock()
	subs := make([]chan Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}
