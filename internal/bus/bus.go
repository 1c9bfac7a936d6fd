// Package bus implements the bounded, ordered event queue that connects
// samplers (many producers) to the dispatcher (one consumer).
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rileyhilliard/vigil/internal/event"
)

// DefaultCapacity is the buffer size used when none is configured.
const DefaultCapacity = 32

// ErrClosed is returned by Send once the bus has been closed.
// Producers treat it as the signal to stop.
var ErrClosed = errors.New("event bus closed")

// Bus is a bounded FIFO of events. Send blocks while the buffer is full and
// never drops. Events from one producer arrive in the order they were sent;
// across producers the order is first come, first served.
type Bus struct {
	ch   chan event.Event
	done chan struct{}

	// mu guards closed and keeps ch from being closed while a Send is in flight.
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// New creates a bus with the given capacity.
func New(capacity int) (*Bus, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("bus capacity must be at least 1, got %d", capacity)
	}
	return &Bus{
		ch:   make(chan event.Event, capacity),
		done: make(chan struct{}),
	}, nil
}

// Send enqueues e, waiting for space if the buffer is full.
// It returns ErrClosed if the bus is closed before or while waiting,
// and ctx.Err() if ctx ends first.
func (b *Bus) Send(ctx context.Context, e event.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	select {
	case b.ch <- e:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the receive side. The channel is closed after Close, once
// every buffered event has been received.
func (b *Bus) Events() <-chan event.Event {
	return b.ch
}

// Close stops the bus. Blocked and future sends fail with ErrClosed; events
// already buffered stay readable. Safe to call more than once.
func (b *Bus) Close() {
	b.once.Do(func() {
		// Wake blocked senders first so they release the read lock.
		close(b.done)

		b.mu.Lock()
		b.closed = true
		close(b.ch)
		b.mu.Unlock()
	})
}

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Len returns the number of buffered events.
func (b *Bus) Len() int {
	return len(b.ch)
}

// Cap returns the buffer capacity.
func (b *Bus) Cap() int {
	return cap(b.ch)
}
