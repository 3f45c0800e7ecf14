// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"sync"

	"github.com/ManuGH/inqwatch/internal/metrics"
)

// DefaultChanBuffer is used when SubscribeChan is given a non-positive size.
const DefaultChanBuffer = 64

// ChanSubscription is a channel-backed listener for consumers that run in
// their own goroutine. Deliveries that find the buffer full are dropped so
// a slow consumer never stalls Publish.
type ChanSubscription[T any] struct {
	bus *Bus[T]
	sub Subscription

	mu     sync.Mutex
	ch     chan T
	closed bool
}

// SubscribeChan registers a buffered channel listener.
func (b *Bus[T]) SubscribeChan(buffer int) *ChanSubscription[T] {
	if buffer <= 0 {
		buffer = DefaultChanBuffer
	}
	cs := &ChanSubscription[T]{bus: b, ch: make(chan T, buffer)}
	cs.sub = b.Subscribe(cs.send)
	return cs
}

// C returns the receive side. It is closed by Close.
func (cs *ChanSubscription[T]) C() <-chan T { return cs.ch }

// Close unsubscribes and closes the channel. Safe to call more than once.
func (cs *ChanSubscription[T]) Close() {
	cs.bus.Unsubscribe(cs.sub)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	cs.closed = true
	close(cs.ch)
}

func (cs *ChanSubscription[T]) send(v T) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	select {
	case cs.ch <- v:
	default:
		metrics.IncBusDrop(cs.bus.topic)
	}
}
