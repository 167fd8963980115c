// Package notify provides a single-slot "new data available" signal.
package notify

import (
	"context"
	"sync/atomic"
)

// Event is a set/clear flag that a single waiter consumes. Setting an
// already-set event collapses into the pending signal; it never queues.
type Event struct {
	ch        chan struct{}
	sets      atomic.Uint64
	collapsed atomic.Uint64
}

// NewEvent returns a cleared event
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Set raises the signal. It returns false when a signal was already pending.
func (e *Event) Set() bool {
	e.sets.Add(1)
	select {
	case e.ch <- struct{}{}:
		return true
	default:
		e.collapsed.Add(1)
		return false
	}
}

// Wait blocks until the signal is raised, then clears it. It returns
// ctx.Err() if ctx ends first.
func (e *Event) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drops a pending signal without waiting
func (e *Event) Clear() {
	select {
	case <-e.ch:
	default:
	}
}

// Pending reports whether a signal is waiting to be consumed
func (e *Event) Pending() bool {
	return len(e.ch) > 0
}

// Sets returns the total number of Set calls
func (e *Event) Sets() uint64 {
	return e.sets.Load()
}

// Collapsed returns how many Set calls merged into an already pending signal
func (e *Event) Collapsed() uint64 {
	return e.collapsed.Load()
}
