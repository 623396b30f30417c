// Package pubsub provides the broadcast UI event sink used by the manager
// and controller to publish UiEvents to any number of transport
// subscribers.
package pubsub

import (
	"sync"

	"github.com/sbsp/playback-engine/internal/event"
)

// Subscriber is a live UiEvent subscription.
type Subscriber struct {
	id  int
	hub *Hub
	Ch  chan event.UiEvent
}

// Hub fans UiEvents out to every current subscriber. Publish is
// non-blocking: a subscriber whose channel is full misses the event rather
// than stalling the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*Subscriber
	nextID int
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[int]*Subscriber)}
}

// Subscribe registers a new subscriber with the given channel buffer size.
func (h *Hub) Subscribe(bufferSize int) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &Subscriber{id: h.nextID, hub: h, Ch: make(chan event.UiEvent, bufferSize)}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes and closes a subscriber's channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.Ch)
	}
}

// Publish implements manager.EventSink and the controller's event sink
// requirement: a non-blocking broadcast to every current subscriber.
func (h *Hub) Publish(evt event.UiEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub.Ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
