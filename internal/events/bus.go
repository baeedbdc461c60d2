// Package events provides a publish-subscribe bus fanning state changes out
// to SSE clients, the MQTT bridge and metrics export.
package events

import (
	"sync"

	"github.com/openbias/biasd/internal/models"
)

const subBufferSize = 8

// Kind says what changed.
type Kind string

const (
	// KindState follows a refresh or a parameter change.
	KindState Kind = "state"
	// KindPresets follows a preset mutation.
	KindPresets Kind = "presets"
	// KindOffline follows a failed refresh.
	KindOffline Kind = "offline"
)

// Event is one published change with the state after it.
type Event struct {
	Kind  Kind         `json:"kind"`
	State models.State `json:"state"`
}

// Bus is a non-blocking publish-subscribe event bus. Slow subscribers have
// events dropped rather than blocking publishers. New subscribers receive the
// most recent event first.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan Event
	last *Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan Event),
	}
}

// Subscribe creates a new subscription with the given ID. Call Unsubscribe
// when done to clean up. Subscribing an existing ID replaces it.
func (b *Bus) Subscribe(id string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[id]; ok {
		close(old)
	}
	ch := make(chan Event, subBufferSize)
	if b.last != nil {
		ch <- *b.last
	}
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends an event to all subscribers.
// If a subscriber's channel is full, the event is dropped (non-blocking).
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &ev
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop if subscriber is slow
		}
	}
}

// Last returns the most recent event.
func (b *Bus) Last() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return Event{}, false
	}
	return *b.last, true
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
