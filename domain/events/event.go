package events

import (
	"sync"
	"time"
)

// Event is a timestamped fact published by a room. The set of events is
// closed: every implementation lives in this package.
//
//sumtype:decl
type Event interface {
	Name() string
	OccurredAt() time.Time
	Room() string
	isEvent()
}

// Meta carries the fields shared by every event.
type Meta struct {
	RoomID string    `json:"roomId"`
	At     time.Time `json:"at"`
}

func (m Meta) OccurredAt() time.Time { return m.At }
func (m Meta) Room() string          { return m.RoomID }
func (Meta) isEvent()                {}

// NewMeta stamps an event for a room with the current time.
func NewMeta(roomID string) Meta {
	return Meta{RoomID: roomID, At: time.Now().UTC()}
}

type EventHandler func(event Event)

// Bus delivers events to subscribers in registration order. Subscribing or
// unsubscribing from inside a handler is allowed; the change applies from
// the next publish.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id      int
	handler EventHandler
}

// Subscribe registers a handler and returns a function that removes it.
func (b *Bus) Subscribe(h EventHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, handler: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler with each event, in order.
func (b *Bus) Publish(evs ...Event) {
	b.mu.Lock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, ev := range evs {
		for _, s := range handlers {
			s.handler(ev)
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
