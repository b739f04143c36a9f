package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsTasks(t *testing.T) {
	q, err := NewQueue(2, "test_runs")
	require.NoError(t, err)
	defer q.Release()

	var ran int32
	wg := &sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, q.Schedule(func() {
			defer wg.Done()
			atomic.AddInt32(&ran, 1)
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 10, ran)
}

func TestQueueLimitsConcurrency(t *testing.T) {
	q, err := NewQueue(2, "test_limits")
	require.NoError(t, err)
	defer q.Release()

	var running, peak int32
	wg := &sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, q.Schedule(func() {
			defer wg.Done()
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}))
	}
	wg.Wait()
	assert.LessOrEqual(t, peak, int32(2))
}

func TestQueueSurvivesPanics(t *testing.T) {
	q, err := NewQueue(1, "test_panics")
	require.NoError(t, err)
	defer q.Release()

	require.NoError(t, q.Schedule(func() {
		panic("boom")
	}))

	done := make(chan struct{})
	require.NoError(t, q.Schedule(func() {
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue stopped running tasks after a panic")
	}
}

func TestQueueRejectsAfterRelease(t *testing.T) {
	q, err := NewQueue(1, "test_release")
	require.NoError(t, err)
	q.Release()

	assert.Error(t, q.Schedule(func() {}))
}
