// Package mailbox provides the single-slot hand-off used between the captive
// portal handler and the bootstrap orchestrator.
//
// A Slot holds at most one value. Put overwrites whatever is pending
// (last write wins, nothing is queued) and a filled slot is never emptied:
// the boot cycle that owns it ends shortly after the value is consumed and
// the next cycle creates a fresh Slot.
//
// Waiters are woken by a channel that is closed on the first Put, so the
// orchestrator blocks without polling.
package mailbox

import (
	"context"
	"sync"
)

// Slot is a thread-safe optional value of type T.
// The zero value is not usable; create slots with New.
type Slot[T any] struct {
	mu     sync.Mutex
	value  T
	filled bool
	ready  chan struct{}
	writes int
}

// New creates an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{ready: make(chan struct{})}
}

// Put stores v, replacing any pending value.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = v
	s.writes++
	if !s.filled {
		s.filled = true
		close(s.ready)
	}
}

// Get returns the current value without blocking.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.filled
}

// Ready returns a channel that is closed once the slot holds a value.
func (s *Slot[T]) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the slot is filled or ctx is done. When several writes
// land before Wait observes the slot, the latest one is returned.
func (s *Slot[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-s.ready:
		v, _ := s.Get()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Writes reports how many times Put has been called.
func (s *Slot[T]) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
