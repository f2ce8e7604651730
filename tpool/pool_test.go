package tpool_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolayne/go-tpool/tpool"
)

func TestNewPoolRejectsInvalidArgument(t *testing.T) {
	_, err := tpool.NewPool(0)
	assert.ErrorIs(t, err, tpool.ErrInvalidArgument)

	_, err = tpool.NewPool(-1)
	assert.ErrorIs(t, err, tpool.ErrInvalidArgument)

	_, err = tpool.NewPool(tpool.MaxThreads + 1)
	assert.ErrorIs(t, err, tpool.ErrInvalidArgument)
}

func TestSingleTask(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)

	task := tpool.New(func(x int) int { return x + 1 }, 41)
	require.NoError(t, tpool.Push(pool, task))

	res, err := task.Join()
	require.NoError(t, err)
	assert.Equal(t, 42, res)

	assert.NoError(t, pool.Close())
}

func TestFanOutHundredTasks(t *testing.T) {
	pool, err := tpool.NewPool(4)
	require.NoError(t, err)
	defer pool.Close()

	const n = 100
	tasks := make([]*tpool.Task[int, int], n)
	for i := 0; i < n; i++ {
		tasks[i] = tpool.New(func(x int) int { return x }, i)
		require.NoError(t, tpool.Push(pool, tasks[i]))
	}

	got := make([]int, n)
	for i, task := range tasks {
		r, err := task.Join()
		require.NoError(t, err)
		got[i] = r
	}

	sort.Ints(got)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestDeleteFailsWhileTasksArePending(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)

	gate := make(chan struct{})
	task := tpool.New(func(int) int { <-gate; return 0 }, 0)
	require.NoError(t, tpool.Push(pool, task))

	// Give the worker a chance to pick the task up so we're racing a
	// genuinely running task, not a merely queued one.
	time.Sleep(10 * time.Millisecond)

	assert.ErrorIs(t, pool.Close(), tpool.ErrHasTasks)

	close(gate)
	_, err = task.Join()
	require.NoError(t, err)
	assert.NoError(t, pool.Close())
}

func TestDetachFrees(t *testing.T) {
	pool, err := tpool.NewPool(2)
	require.NoError(t, err)

	task := tpool.New(func(int) int {
		time.Sleep(50 * time.Millisecond)
		return 0
	}, 0)
	require.NoError(t, tpool.Push(pool, task))
	require.NoError(t, task.Detach())

	deadline := time.Now().Add(2 * time.Second)
	for pool.ThreadCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	for time.Now().Before(deadline) {
		// Poll for shutdown eligibility (no public "free worker count"
		// getter, so we just retry Close until it succeeds).
		if err := pool.Close(); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pool never became closeable after detach completed")
}

func TestPushAfterCloseInitiatedPanics(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	assert.Panics(t, func() {
		task := tpool.New(func(x int) int { return x }, 0)
		_ = tpool.Push(pool, task)
	})
}

func TestInvalidRepushWhileStillPushed(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	gate := make(chan struct{})
	task := tpool.New(func(int) int { <-gate; return 0 }, 0)
	require.NoError(t, tpool.Push(pool, task))

	err = tpool.Push(pool, task)
	assert.ErrorIs(t, err, tpool.ErrInvalidRepush)

	close(gate)
	_, _ = task.Join()
}

func TestConcurrentProducersFanIn(t *testing.T) {
	pool, err := tpool.NewPool(8)
	require.NoError(t, err)
	defer pool.Close()

	const producers = 20
	const perProducer = 25

	var wg sync.WaitGroup
	sums := make([]int, producers)
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			total := 0
			for i := 0; i < perProducer; i++ {
				task := tpool.New(func(x int) int { return x * x }, i)
				require.NoError(t, tpool.Push(pool, task))
				r, err := task.Join()
				require.NoError(t, err)
				total += r
			}
			sums[p] = total
		}(p)
	}
	wg.Wait()

	want := 0
	for i := 0; i < perProducer; i++ {
		want += i * i
	}
	for _, got := range sums {
		assert.Equal(t, want, got)
	}
}

func TestThreadCountNeverExceedsMax(t *testing.T) {
	pool, err := tpool.NewPool(3)
	require.NoError(t, err)
	defer pool.Close()

	var wg sync.WaitGroup
	gate := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		task := tpool.New(func(int) int { <-gate; return 0 }, 0)
		require.NoError(t, tpool.Push(pool, task))
		go func() {
			defer wg.Done()
			_, _ = task.Join()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, pool.ThreadCount(), 3)

	close(gate)
	wg.Wait()
}
