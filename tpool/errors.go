package tpool

import "errors"

// Errors returned by the package. They are sentinel values so callers can
// compare with errors.Is; none of them wrap further detail because none of
// the operations they're returned from mutate any state before failing.
var (
	// ErrInvalidArgument is returned by NewPool for a non-positive worker
	// count or one exceeding MaxThreads.
	ErrInvalidArgument = errors.New("tpool: invalid argument")

	// ErrHasTasks is returned by (*Pool).Close when the queue is non-empty
	// or a worker is still busy.
	ErrHasTasks = errors.New("tpool: pool still has queued or running tasks")

	// ErrTooManyTasks is returned by Push when the queue is at MaxTasks.
	// It's transient: the caller may retry once some tasks have been
	// joined or have otherwise left the queue.
	ErrTooManyTasks = errors.New("tpool: queue is at capacity")

	// ErrInvalidRepush is returned by Push when the task is in a state
	// other than newly created or joined (e.g. still pushed or running).
	ErrInvalidRepush = errors.New("tpool: task is not in a pushable state")

	// ErrInPool is returned by (*Task).Delete when the task has been
	// pushed but hasn't been joined yet.
	ErrInPool = errors.New("tpool: task is still owned by a pool")

	// ErrNotPushed is returned by Join, TimedJoin and Detach when the task
	// was never pushed to a pool.
	ErrNotPushed = errors.New("tpool: task was never pushed")

	// ErrTimeout is returned by TimedJoin when the deadline elapses
	// before the task completes.
	ErrTimeout = errors.New("tpool: timed join expired before completion")

	// ErrGhosted is returned by IsFinished, IsRunning, Join and TimedJoin
	// when called on a detached task that is still queued or running. Per
	// the detach contract, the pool owns the task from that point on and no
	// other call is defined. Delete on such a task returns ErrInPool, and a
	// second Detach panics.
	ErrGhosted = errors.New("tpool: task was detached; it belongs to the pool now")

	// ErrAlreadyJoined is returned by Join and TimedJoin when called again
	// on a task that has already been joined. The state word never returns
	// to COMPLETED on its own, so without this check a double join would
	// block forever instead of failing.
	ErrAlreadyJoined = errors.New("tpool: task was already joined")
)
