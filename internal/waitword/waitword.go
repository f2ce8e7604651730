// Package waitword implements a blocking wait-until-value primitive over a
// single atomic word. It is the Go stand-in for a kernel futex: a thread can
// publish a new value with CompareAndSwap and every thread blocked in
// WaitForValue on the old value wakes, re-checks, and either returns or goes
// back to sleep. No wakeup is ever visible to the caller unless the watched
// value actually equals what it was waiting for, so spurious wakeups
// (including a context cancellation that races with a legitimate transition)
// never surface as false negatives.
package waitword

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is a uint32 word that can be atomically transitioned and waited on.
// The zero value is not usable; construct one with New.
type State struct {
	v   atomic.Uint32
	mu  sync.Mutex
	gen chan struct{}
}

// New returns a State initialized to initial. No wakeup is performed: by
// construction there cannot yet be any waiter.
func New(initial uint32) *State {
	s := &State{gen: make(chan struct{})}
	s.v.Store(initial)
	return s
}

// Load reads the current value with acquire semantics.
func (s *State) Load() uint32 {
	return s.v.Load()
}

// CompareAndSwap atomically swaps the value from old to new and, on success,
// wakes every goroutine currently blocked in WaitForValue.
// The swap itself is acquire-release: the caller's writes prior to the call
// happen-before any goroutine that observes the new value.
func (s *State) CompareAndSwap(old, new uint32) bool {
	if !s.v.CompareAndSwap(old, new) {
		return false
	}
	s.wake()
	return true
}

// wake publishes a new generation channel, unblocking every goroutine
// currently parked on the previous one. It's equivalent to a futex wake
// with an unbounded waiter count.
func (s *State) wake() {
	s.mu.Lock()
	close(s.gen)
	s.gen = make(chan struct{})
	s.mu.Unlock()
}

// WaitForValue blocks until Load() == want, regardless of the value observed
// at entry, or until ctx is done. It never returns due to a spurious wakeup:
// every wakeup re-checks the value before deciding to return or re-block.
func (s *State) WaitForValue(ctx context.Context, want uint32) error {
	for {
		// Capture the generation channel before loading the value, mirroring
		// the futex contract of atomically re-checking the word under the
		// same observation as the wait: if a CompareAndSwap (and its wake)
		// lands between the load and the channel capture, a wake on the
		// *old* generation could be missed entirely and the waiter would
		// park on a fresh, never-to-be-closed channel forever. Capturing
		// gen first means any wake that happens after is guaranteed to
		// close the channel we're about to select on.
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()
		if s.v.Load() == want {
			return nil
		}
		select {
		case <-gen:
			// Something changed; loop around and re-check.
		case <-ctx.Done():
			// The watched value may have reached `want` in the same instant
			// ctx expired; prefer delivering the value over a false timeout.
			if s.v.Load() == want {
				return nil
			}
			return ctx.Err()
		}
	}
}
