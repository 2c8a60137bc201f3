// Package watch fans state snapshots out to subscribers.
//
// Every subscription holds a single-slot buffer: a slow reader only ever sees the
// newest value, and Publish never blocks the mutating caller.
package watch

import (
	"sync"

	"github.com/google/uuid"
)

// Hub distributes the latest value of T to all subscribers.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscription[T]
	latest T
	hasAny bool
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uuid.UUID]*Subscription[T])}
}

// Subscription receives values published after (and the one current at) Subscribe.
type Subscription[T any] struct {
	id     uuid.UUID
	ch     chan T
	hub    *Hub[T]
	closed bool
}

func (s *Subscription[T]) ID() uuid.UUID { return s.id }

// C is closed when the subscription is closed.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(s.hub.subs, s.id)
	close(s.ch)
}

// Subscribe registers a new subscriber. If a value has been published before,
// it is delivered immediately.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription[T]{
		id:  uuid.New(),
		ch:  make(chan T, 1),
		hub: h,
	}
	if h.hasAny {
		sub.ch <- h.latest
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish records v as the latest value and offers it to every subscriber,
// replacing any value the subscriber has not consumed yet.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = v
	h.hasAny = true

	for _, sub := range h.subs {
		select {
		case sub.ch <- v:
			continue
		default:
		}

		// Slot full: drop the stale value and retry once.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- v:
		default:
		}
	}
}

// Latest returns the last published value and whether one exists.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasAny
}

// Len returns the number of open subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// CloseAll closes every open subscription.
func (h *Hub[T]) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		sub.closed = true
		close(sub.ch)
		delete(h.subs, id)
	}
}
