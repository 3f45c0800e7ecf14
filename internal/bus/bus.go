// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the in-process fan-out for decoded events.
//
// Publish is synchronous: every listener registered at the time of the call
// runs on the publishing goroutine, in registration order, before Publish
// returns. Nothing is buffered or replayed for late subscribers.
package bus

import (
	"sync"

	xglog "github.com/ManuGH/inqwatch/internal/log"
	"github.com/ManuGH/inqwatch/internal/metrics"
	"github.com/rs/zerolog"
)

// Listener receives published events.
type Listener[T any] func(T)

// Subscription identifies one registered listener.
type Subscription struct {
	id uint64
}

type entry[T any] struct {
	id uint64
	fn Listener[T]
}

// Bus broadcasts values of type T to its listeners.
type Bus[T any] struct {
	topic  string
	logger zerolog.Logger

	mu        sync.RWMutex
	nextID    uint64
	listeners []entry[T]
}

// New returns an empty bus. topic labels its metrics and logs.
func New[T any](topic string) *Bus[T] {
	return &Bus[T]{
		topic:  topic,
		logger: xglog.WithComponent("bus").With().Str("topic", topic).Logger(),
	}
}

// Subscribe registers fn. Removing it again is the caller's job.
func (b *Bus[T]) Subscribe(fn Listener[T]) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners = append(b.listeners, entry[T]{id: b.nextID, fn: fn})
	metrics.SetBusListeners(b.topic, len(b.listeners))
	return Subscription{id: b.nextID}
}

// Unsubscribe removes the listener behind s. Unknown or already removed
// subscriptions are ignored.
func (b *Bus[T]) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.listeners[:0]
	for _, e := range b.listeners {
		if e.id != s.id {
			out = append(out, e)
		}
	}
	clear(b.listeners[len(out):])
	b.listeners = out
	metrics.SetBusListeners(b.topic, len(b.listeners))
}

// Len returns the number of registered listeners.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish delivers v to every current listener. Listeners may subscribe or
// unsubscribe from inside the callback; the change applies to the next
// Publish.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	ls := append([]entry[T](nil), b.listeners...)
	b.mu.RUnlock()

	metrics.IncBusPublished(b.topic)
	for _, e := range ls {
		b.call(e, v)
	}
}

func (b *Bus[T]) call(e entry[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncBusDropReason(b.topic, "panic")
			b.logger.Error().
				Interface("panic", r).
				Str(xglog.FieldEvent, "bus.listener_panic").
				Uint64("subscription", e.id).
				Msg("bus listener panicked")
		}
	}()
	e.fn(v)
}
