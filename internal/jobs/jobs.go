// Package jobs tracks asynchronous work submitted to the demo server: each
// job wraps one tpool.Task, and this package's Manager is the layer that
// gives that task a stable ID, a status a client can poll, and a
// TTL-bounded lifetime in memory once it's done.
package jobs

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sync"

	"github.com/kolayne/go-tpool/internal/resp"
	"github.com/kolayne/go-tpool/tpool"
)

type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusTimeout  Status = "timeout"
	StatusCanceled Status = "canceled"
)

// TaskFunc is the shape every named pool's work function must have: it
// takes the job's string parameters and produces a resp.Result.
type TaskFunc func(params map[string]string) resp.Result

// Job is a snapshot of one submitted unit of work.
type Job struct {
	ID         string            `json:"id"`
	Task       string            `json:"task"`
	Params     map[string]string `json:"params,omitempty"`
	Status     Status            `json:"status"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
	Result     *resp.Result      `json:"result,omitempty"`

	task     *tpool.Task[map[string]string, resp.Result]
	detached bool
}

// Manager keeps an in-memory registry of jobs and runs each on the named
// pool it was submitted to.
type Manager struct {
	pools map[string]*tpool.Pool
	fns   map[string]TaskFunc
	log   *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*Job

	ttl   time.Duration
	stopC chan struct{}
}

// NewManager creates a Job Manager over the given named pools/functions,
// with ttl controlling how long finished jobs are kept before GC.
func NewManager(pools map[string]*tpool.Pool, fns map[string]TaskFunc, ttl time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		pools: pools,
		fns:   fns,
		log:   log,
		jobs:  make(map[string]*Job),
		ttl:   ttl,
		stopC: make(chan struct{}),
	}
	go m.gcLoop()
	return m
}

// Close stops the Manager's background GC goroutine.
func (m *Manager) Close() { close(m.stopC) }

func (m *Manager) gcLoop() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.cleanup()
		case <-m.stopC:
			return
		}
	}
}

func (m *Manager) cleanup() {
	cut := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, j := range m.jobs {
		if isTerminal(j.Status) && j.EndedAt != nil && j.EndedAt.Before(cut) {
			delete(m.jobs, id)
		}
	}
}

func isTerminal(s Status) bool {
	switch s {
	case StatusDone, StatusFailed, StatusTimeout, StatusCanceled:
		return true
	default:
		return false
	}
}

// Submit creates a job and pushes it to the named pool, returning its ID.
// It returns "" if the pool doesn't exist. The job runs in the background;
// if execTimeout elapses before the task completes, the job is marked
// StatusTimeout and the task is detached (the pool still runs it to
// completion, but its result is discarded — this package never cancels
// in-flight work, matching the pool's own non-goals).
func (m *Manager) Submit(taskName string, params map[string]string, execTimeout time.Duration) string {
	pool, ok := m.pools[taskName]
	if !ok {
		return ""
	}
	fn, ok := m.fns[taskName]
	if !ok {
		return ""
	}

	id := uuid.NewString()
	now := time.Now()
	t := tpool.New(fn, params)
	job := &Job{
		ID:         id,
		Task:       taskName,
		Params:     params,
		Status:     StatusQueued,
		EnqueuedAt: now,
		task:       t,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	if err := tpool.Push(pool, t); err != nil {
		m.mu.Lock()
		job.Status = StatusFailed
		end := time.Now()
		job.EndedAt = &end
		m.mu.Unlock()
		return id
	}

	go func() {
		start := time.Now()
		m.mu.Lock()
		job.StartedAt = &start
		job.Status = StatusRunning
		m.mu.Unlock()

		res, err := t.TimedJoin(execTimeout)
		end := time.Now()

		m.mu.Lock()
		defer m.mu.Unlock()
		job.EndedAt = &end

		if err != nil {
			// Cancel may have already detached this task (and moved it to a
			// terminal status) while TimedJoin was still blocked; a second
			// Detach on an already-ghosted task panics (task.go's Detach
			// only accepts an attached task that is pushed, running or
			// completed), so only detach here
			// if nobody beat us to it.
			if job.detached {
				return
			}
			job.detached = true
			_ = t.Detach()
			job.Status = StatusTimeout
			m.log.Warn("job timed out", zap.String("id", id), zap.String("task", taskName))
			return
		}

		job.Result = &res
		if res.Status >= 200 && res.Status < 300 {
			job.Status = StatusDone
		} else {
			job.Status = StatusFailed
		}
	}()

	return id
}

// Snapshot returns a copy of the job's current state.
func (m *Manager) Snapshot(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Result returns the job's result, or an error if it hasn't finished yet.
func (m *Manager) Result(id string) (resp.Result, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return resp.Result{}, false, nil
	}
	if j.Result == nil {
		return resp.Result{}, true, errNotReady
	}
	return *j.Result, true, nil
}

// Cancel detaches the job's underlying task, relinquishing interest in its
// result, and marks it canceled if it hadn't already reached a terminal
// state. Returns the job's status after the call and whether it existed.
func (m *Manager) Cancel(id string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return "", false
	}
	if isTerminal(j.Status) {
		return j.Status, true
	}
	if !j.detached {
		j.detached = true
		_ = j.task.Detach()
	}
	j.Status = StatusCanceled
	end := time.Now()
	j.EndedAt = &end
	return j.Status, true
}

// List returns a lightweight view of every job currently tracked.
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, Job{ID: j.ID, Task: j.Task, Status: j.Status})
	}
	return out
}
