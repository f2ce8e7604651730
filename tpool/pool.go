// Package tpool implements a bounded worker pool whose tasks are joinable,
// repushable and detachable. It accepts short-lived units of work, hands
// them to a lazily grown set of worker goroutines, and lets producers
// synchronize with completion by blocking Join, timed Join, or fire-and-
// forget Detach.
//
// Task lifecycle is coordinated by a single atomic state word per task (see
// internal/waitword); joiners wait on that word, whose small mutex and wake
// channel belong to the task, not to the pool. The ready queue, worker
// count and idle-worker count are
// protected by one mutex, mirroring a classic mutex+condvar producer/
// consumer design translated into idiomatic Go channels.
package tpool

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kolayne/go-tpool/internal/ringqueue"
)

// MaxThreads is the hard ceiling on the number of workers a single Pool may
// spawn. The spec this package follows requires only that it be at least
// 16; this implementation is generous because workers are cheap goroutines,
// not OS threads.
const MaxThreads = 4096

// MaxTasks is the hard ceiling on the number of tasks a single Pool's ready
// queue may hold at once. The spec requires only that it be at least 1024.
const MaxTasks = 1 << 20

// queued is the interface the ready queue stores: the state-machine
// operations a worker needs to drive a task from pushed to completed,
// without the worker knowing the task's argument/result types.
type queued interface {
	pickup() (ghost bool)
	run()
	completeAttached() bool
	completeGhost() bool
}

// Pool owns a ready queue and a lazily grown set of worker goroutines.
// Workers are spawned on demand, up to a configured ceiling, and are never
// retired until the pool is closed.
type Pool struct {
	maxWorkers int
	logger     *zap.Logger

	mu          sync.Mutex
	queue       *ringqueue.Queue
	spawned     int
	free        int
	closing     bool
	closed      bool
	notEmptyGen chan struct{}
	quit        chan struct{}

	wg sync.WaitGroup
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger attaches a structured logger the pool uses to report worker
// lifecycle events (spawn, panic recovery, shutdown). The default is a
// no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPool creates a pool that will spawn at most maxWorkers worker
// goroutines. It returns ErrInvalidArgument if maxWorkers is non-positive or
// exceeds MaxThreads.
func NewPool(maxWorkers int, opts ...Option) (*Pool, error) {
	if maxWorkers <= 0 || maxWorkers > MaxThreads {
		return nil, ErrInvalidArgument
	}
	p := &Pool{
		maxWorkers:  maxWorkers,
		logger:      zap.NewNop(),
		queue:       ringqueue.New(8),
		notEmptyGen: make(chan struct{}),
		quit:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ThreadCount returns the number of worker goroutines spawned so far. It's
// informational: the value may be stale the instant it's returned.
func (p *Pool) ThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawned
}

// Push submits t to the pool. It returns ErrTooManyTasks if the ready queue
// is already at MaxTasks, or ErrInvalidRepush if t is in a state other than
// newly created or already joined (e.g. it's still pushed, running, or
// ghosted). Pushing to a pool that has started closing is a programming
// error and panics, matching the "new push after shutdown initiation" rule.
func Push[A, R any](p *Pool, t *Task[A, R]) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closing {
		panic("tpool: push after Close was called")
	}
	if p.queue.Size() >= MaxTasks {
		return ErrTooManyTasks
	}
	if !t.transitionPush() {
		return ErrInvalidRepush
	}

	p.queue.Push(t)
	p.maybeSpawnLocked()
	p.signalPushLocked()
	return nil
}

// maybeSpawnLocked starts one more worker if none are idle and the ceiling
// hasn't been reached. Must be called with mu held.
func (p *Pool) maybeSpawnLocked() {
	if p.free == 0 && p.spawned < p.maxWorkers {
		p.spawned++
		p.wg.Add(1)
		id := p.spawned
		go p.workerLoop(id)
	}
}

// signalPushLocked wakes every worker currently parked waiting for work.
// Must be called with mu held, same lock used to enqueue, so a wakeup is
// never lost between the push and the signal.
func (p *Pool) signalPushLocked() {
	close(p.notEmptyGen)
	p.notEmptyGen = make(chan struct{})
}

// workerLoop is the body of a single worker goroutine. It mirrors the
// reference C implementation's loop: the previous task is only declared
// finished after the lock for the *next* iteration is retaken, which closes
// a race where the pool could otherwise observe "all workers free, queue
// empty" while a task is in fact one instruction away from completing.
func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	p.logger.Debug("tpool: worker started", zap.Int("worker", id))

	var prev queued
	for {
		p.mu.Lock()
		if prev != nil {
			p.finishPreviousLocked(prev)
			prev = nil
		}

		p.free++
		for p.queue.Size() == 0 {
			gen := p.notEmptyGen
			p.mu.Unlock()
			select {
			case <-gen:
			case <-p.quit:
				p.mu.Lock()
				p.free--
				p.mu.Unlock()
				p.logger.Debug("tpool: worker exiting", zap.Int("worker", id))
				return
			}
			p.mu.Lock()
		}
		p.free--

		v, _ := p.queue.Pop()
		t := v.(queued)
		p.mu.Unlock()

		t.pickup()
		p.runTask(t, id)
		prev = t
	}
}

// finishPreviousLocked performs the deferred completion transition for the
// task the worker ran in the previous iteration. Must be called with mu
// held.
func (p *Pool) finishPreviousLocked(prev queued) {
	if prev.completeAttached() {
		return
	}
	if prev.completeGhost() {
		return
	}
	panic("tpool: worker's previous task was not in a running state")
}

// runTask executes t's function, recovering from a panic so one bad task
// can't take the whole pool down with it. A recovered panic still drives
// the task to completion; its result is simply the function's zero value.
func (p *Pool) runTask(t queued, id int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("tpool: task function panicked",
				zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	t.run()
}

// Close shuts the pool down. It returns ErrHasTasks if the ready queue is
// non-empty or any worker is still busy; shutdown is only legal once every
// spawned worker is idle and waiting for work. Otherwise it cancels every
// worker, waits for them to exit, and releases the pool's resources.
// Close is idempotent: calling it again after a successful Close is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if p.queue.Size() != 0 || p.free != p.spawned {
		p.mu.Unlock()
		return ErrHasTasks
	}
	p.closing = true
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
	p.logger.Debug("tpool: pool closed", zap.Int("workers_spawned", p.spawned))
	return nil
}
