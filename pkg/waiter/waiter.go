// Package waiter lets a goroutine block until an event matching its check is
// published, or until a timeout elapses.
//
// Invariants:
// - An event is delivered to every pending waiter whose check passes.
// - An event failing a check is left for the other waiters; it is not consumed.
// - Events published while nobody waits are dropped.
// - Checks run under the waiter lock, one at a time.
package waiter

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by Wait when no matching event arrived in time
var ErrTimeout = errors.New("timed out waiting for event")

type pending[T any] struct {
	check func(T) bool
	ch    chan T
}

// Waiter fans published events out to pending waits
type Waiter[T any] struct {
	mu      sync.Mutex
	seq     uint64
	pending map[uint64]*pending[T]
}

// New creates a waiter
func New[T any]() *Waiter[T] {
	return &Waiter[T]{
		pending: make(map[uint64]*pending[T]),
	}
}

// Wait blocks until an event passing check is published. A zero timeout waits
// until ctx is done.
func (w *Waiter[T]) Wait(ctx context.Context, check func(T) bool, timeout time.Duration) (T, error) {
	var zero T

	p := &pending[T]{check: check, ch: make(chan T, 1)}

	w.mu.Lock()
	w.seq++
	id := w.seq
	w.pending[id] = p
	w.mu.Unlock()

	defer w.remove(id)

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case event := <-p.ch:
		return event, nil
	case <-timer:
		if event, ok := w.drain(id, p); ok {
			return event, nil
		}
		return zero, ErrTimeout
	case <-ctx.Done():
		if event, ok := w.drain(id, p); ok {
			return event, nil
		}
		return zero, ctx.Err()
	}
}

// drain unregisters the wait and then picks up an event a concurrent Publish
// delivered before the removal. Once removed, no later Publish can reach p.
func (w *Waiter[T]) drain(id uint64, p *pending[T]) (T, bool) {
	w.remove(id)
	select {
	case event := <-p.ch:
		return event, true
	default:
		var zero T
		return zero, false
	}
}

// Publish delivers event to every pending waiter whose check passes and
// returns how many received it
func (w *Waiter[T]) Publish(event T) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	delivered := 0
	for id, p := range w.pending {
		if p.check != nil && !p.check(event) {
			continue
		}
		p.ch <- event
		delete(w.pending, id)
		delivered++
	}
	return delivered
}

// Pending returns the number of waits in progress
func (w *Waiter[T]) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Waiter[T]) remove(id uint64) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}
