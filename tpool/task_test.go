package tpool_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolayne/go-tpool/tpool"
)

func TestTaskDeleteBeforePushIsLegal(t *testing.T) {
	task := tpool.New(func(x int) int { return x }, 1)
	require.NoError(t, task.Delete())
}

func TestTaskDeleteWhileInPoolFails(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	gate := make(chan struct{})
	task := tpool.New(func(int) int { <-gate; return 0 }, 0)
	require.NoError(t, tpool.Push(pool, task))

	assert.ErrorIs(t, task.Delete(), tpool.ErrInPool)
	close(gate)

	_, err = task.Join()
	require.NoError(t, err)
	assert.NoError(t, task.Delete())
}

func TestJoinNotPushedReturnsError(t *testing.T) {
	task := tpool.New(func(x int) int { return x }, 0)
	_, err := task.Join()
	assert.ErrorIs(t, err, tpool.ErrNotPushed)
}

func TestRoundTripNewPushJoinDelete(t *testing.T) {
	pool, err := tpool.NewPool(2)
	require.NoError(t, err)
	defer pool.Close()

	task := tpool.New(func(x int) int { return x + 1 }, 41)
	require.NoError(t, tpool.Push(pool, task))

	res, err := task.Join()
	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.NoError(t, task.Delete())
}

func TestRepushAfterJoinUsesNewArgument(t *testing.T) {
	pool, err := tpool.NewPool(2)
	require.NoError(t, err)
	defer pool.Close()

	arg := 1

	// Push -> join once.
	task := tpool.New(func(int) int { return arg * 10 }, 0)
	require.NoError(t, tpool.Push(pool, task))
	r1, err := task.Join()
	require.NoError(t, err)
	assert.Equal(t, 10, r1)

	// Mutate the captured argument and repush.
	arg = 2
	require.NoError(t, tpool.Push(pool, task))
	r2, err := task.Join()
	require.NoError(t, err)
	assert.Equal(t, 20, r2)
}

func TestTimedJoinTimesOutThenSucceeds(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	task := tpool.New(func(int) int {
		time.Sleep(100 * time.Millisecond)
		return 7
	}, 0)
	require.NoError(t, tpool.Push(pool, task))

	_, err = task.TimedJoin(10 * time.Millisecond)
	assert.ErrorIs(t, err, tpool.ErrTimeout)

	res, err := task.TimedJoin(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, res)
}

func TestTimedJoinZeroMeansWaitForever(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	task := tpool.New(func(int) int {
		time.Sleep(20 * time.Millisecond)
		return 9
	}, 0)
	require.NoError(t, tpool.Push(pool, task))

	res, err := task.TimedJoin(0)
	require.NoError(t, err)
	assert.Equal(t, 9, res)
}

func TestDetachThenJoinIsUndefinedAndReported(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	gate := make(chan struct{})
	task := tpool.New(func(int) int { <-gate; return 1 }, 0)
	require.NoError(t, tpool.Push(pool, task))
	require.NoError(t, task.Detach())

	_, err = task.Join()
	assert.ErrorIs(t, err, tpool.ErrGhosted)

	close(gate)
}

func TestDetachBeforePushReturnsNotPushed(t *testing.T) {
	task := tpool.New(func(x int) int { return x }, 0)
	assert.ErrorIs(t, task.Detach(), tpool.ErrNotPushed)
}

func TestDetachAfterCompletionCollapsesJoinAndDelete(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	task := tpool.New(func(x int) int { return x }, 5)
	require.NoError(t, tpool.Push(pool, task))

	// Give the worker a moment to complete the (trivial) task.
	for i := 0; i < 1000; i++ {
		if finished, _ := task.IsFinished(); finished {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, task.Detach())
}

func TestIsRunningAndIsFinished(t *testing.T) {
	pool, err := tpool.NewPool(1)
	require.NoError(t, err)
	defer pool.Close()

	started := make(chan struct{})
	gate := make(chan struct{})
	task := tpool.New(func(int) int {
		close(started)
		<-gate
		return 0
	}, 0)
	require.NoError(t, tpool.Push(pool, task))

	<-started
	running, err := task.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	finished, err := task.IsFinished()
	require.NoError(t, err)
	assert.False(t, finished)

	close(gate)
	_, err = task.Join()
	require.NoError(t, err)

	running, err = task.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}
