package tpool

import (
	"context"
	"time"

	"github.com/kolayne/go-tpool/internal/waitword"
)

// state values form the task lattice: forward transitions only, except for
// the explicit Repush (joined -> pushed) edge.
const (
	stateCreated uint32 = iota
	statePushed
	statePushedGhost
	stateRunning
	stateRunningGhost
	stateCompleted
	stateJoined
)

// Task couples a function, its argument and a result slot behind a single
// atomic state word. A Task is created with New, submitted to a Pool with
// Push, and its result retrieved with Join, TimedJoin or (if the caller
// doesn't want the result) abandoned with Detach.
//
// A *Task[A, R] must not be copied after New.
type Task[A, R any] struct {
	fn  func(A) R
	arg A
	ret R

	st *waitword.State
}

// New creates a task wrapping fn and arg. The task starts in the "created"
// state and must be submitted with Push before it can be joined or
// detached.
func New[A, R any](fn func(A) R, arg A) *Task[A, R] {
	return &Task[A, R]{
		fn:  fn,
		arg: arg,
		st:  waitword.New(stateCreated),
	}
}

// release drops the task's references to its argument and result so the GC
// can reclaim anything they hold. This is the Go analogue of the C
// implementation's free(task): nothing else needs "freeing", but letting go
// of A/R eagerly keeps ghosted or joined tasks from pinning memory.
func (t *Task[A, R]) release() {
	var zeroA A
	var zeroR R
	t.arg = zeroA
	t.ret = zeroR
}

// transitionPush attempts created->pushed, then joined->pushed (a repush).
// Called by Push under the pool's queue lock.
func (t *Task[A, R]) transitionPush() bool {
	return t.st.CompareAndSwap(stateCreated, statePushed) ||
		t.st.CompareAndSwap(stateJoined, statePushed)
}

// pickup is called by a worker immediately after popping the task off the
// ready queue. It reports whether the task was ghosted at the time.
func (t *Task[A, R]) pickup() (ghost bool) {
	if t.st.CompareAndSwap(statePushed, stateRunning) {
		return false
	}
	if t.st.CompareAndSwap(statePushedGhost, stateRunningGhost) {
		return true
	}
	panic("tpool: task popped from the ready queue was not in a pushed state")
}

// run executes the wrapped function and stores its result. It must only be
// called by the worker that performed pickup, exactly once, before the
// completion transition.
func (t *Task[A, R]) run() {
	var zero R
	t.ret = zero // a panicking fn leaves the zero value, not a previous run's result
	t.ret = t.fn(t.arg)
}

// completeAttached is the worker's running->completed transition for a task
// that was never detached.
func (t *Task[A, R]) completeAttached() bool {
	return t.st.CompareAndSwap(stateRunning, stateCompleted)
}

// completeGhost is the worker's running_ghost->joined transition, performed
// when a detached task finishes: the worker both completes and "frees" it
// in one step, since no joiner will ever look at the result.
func (t *Task[A, R]) completeGhost() bool {
	if !t.st.CompareAndSwap(stateRunningGhost, stateJoined) {
		return false
	}
	t.release()
	return true
}

// IsFinished reports whether the task has completed execution and is
// waiting to be joined. It returns false for joined or not-yet-run tasks;
// calling it on a detached task is a programming error (see Detach), so
// while a detached task is still queued or running it returns false
// together with ErrGhosted.
func (t *Task[A, R]) IsFinished() (bool, error) {
	switch t.st.Load() {
	case statePushedGhost, stateRunningGhost:
		return false, ErrGhosted
	default:
		return t.st.Load() == stateCompleted, nil
	}
}

// IsRunning reports whether the task is currently executing on a worker.
// running_ghost is deliberately not reported: calling IsRunning on a
// detached task is undefined by the spec this package follows, so it
// returns ErrGhosted instead.
func (t *Task[A, R]) IsRunning() (bool, error) {
	switch t.st.Load() {
	case statePushedGhost, stateRunningGhost:
		return false, ErrGhosted
	default:
		return t.st.Load() == stateRunning, nil
	}
}

// Join blocks until the task completes, then returns its result. It returns
// ErrNotPushed if the task has never been pushed to a pool.
func (t *Task[A, R]) Join() (R, error) {
	return t.join(context.Background())
}

// TimedJoin behaves like Join but returns ErrTimeout if timeout elapses
// first. timeout <= 0 means wait forever, equivalent to Join.
func (t *Task[A, R]) TimedJoin(timeout time.Duration) (R, error) {
	if timeout <= 0 {
		return t.Join()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	r, err := t.join(ctx)
	if err == context.DeadlineExceeded {
		var zero R
		return zero, ErrTimeout
	}
	return r, err
}

func (t *Task[A, R]) join(ctx context.Context) (R, error) {
	var zero R

	// Relaxed precheck: a false "still created" reading only delays
	// subscribing to the wait, the wait itself re-checks with acquire
	// ordering. A false positive can't happen, since created never
	// transitions away without a release-ordered CAS first.
	switch t.st.Load() {
	case stateCreated:
		return zero, ErrNotPushed
	case statePushedGhost, stateRunningGhost:
		return zero, ErrGhosted
	case stateJoined:
		return zero, ErrAlreadyJoined
	}

	if err := t.st.WaitForValue(ctx, stateCompleted); err != nil {
		return zero, err
	}

	if !t.st.CompareAndSwap(stateCompleted, stateJoined) {
		panic("tpool: task left the completed state before it could be joined")
	}

	return t.ret, nil
}

// Detach relinquishes ownership of the task to whichever component is still
// advancing it: the ready queue if it hasn't run yet, the worker if it's
// running, or immediately (by collapsing join+delete) if it has already
// completed. After Detach returns nil, no further call on t is defined
// except via a fresh call to New for an unrelated task.
func (t *Task[A, R]) Detach() error {
	switch {
	case t.st.Load() == stateCreated:
		return ErrNotPushed
	case t.st.CompareAndSwap(statePushed, statePushedGhost):
		return nil
	case t.st.CompareAndSwap(stateRunning, stateRunningGhost):
		return nil
	case t.st.CompareAndSwap(stateCompleted, stateJoined):
		t.release()
		return nil
	default:
		panic("tpool: task is in a state that cannot be detached")
	}
}

// Delete releases the task's resources. It's legal only when the task was
// never pushed or has already been joined; otherwise it returns ErrInPool
// without changing anything. Since Go is garbage collected this mostly just
// drops references early, but it preserves the lifecycle contract the rest
// of the package assumes (and lets leak checks in tests assert on it).
func (t *Task[A, R]) Delete() error {
	switch t.st.Load() {
	case stateCreated, stateJoined:
		t.release()
		return nil
	default:
		return ErrInPool
	}
}
