package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunProducesOneResultPerItemInOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results, err := Run(context.Background(), 2, items, func(_ context.Context, item int) (int, error) {
		return item * item, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 9, 16, 25}, results)
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	var current, max atomic.Int32
	items := make([]int, 20)

	_, err := Run(context.Background(), 3, items, func(_ context.Context, _ int) (struct{}, error) {
		n := current.Add(1)
		for {
			m := max.Load()
			if n <= m || max.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		current.Add(-1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	require.LessOrEqual(t, int(max.Load()), 3)
}

func TestRunPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3}

	_, err := Run(context.Background(), 0, items, func(_ context.Context, item int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		return item, nil
	})

	require.ErrorIs(t, err, boom)
}

func TestStreamPoolBoundsConcurrentTasks(t *testing.T) {
	pool := NewStreamPool(2)
	var current, max atomic.Int32

	for i := 0; i < 10; i++ {
		err := pool.Submit(context.Background(), func() {
			n := current.Add(1)
			for {
				m := max.Load()
				if n <= m || max.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
		})
		require.NoError(t, err)
	}
	pool.Wait()

	require.LessOrEqual(t, int(max.Load()), 2)
}

func TestCheckpointerReflectsCancelState(t *testing.T) {
	var c Checkpointer
	require.NoError(t, c.Checkpoint())

	c.Cancel()
	require.ErrorIs(t, c.Checkpoint(), ErrCancelled)
	require.True(t, c.Cancelled())
}
