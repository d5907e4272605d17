package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/rbtc/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPreprocessorCoalescesAdjacentEditsForSameFile(t *testing.T) {
	p := NewPreprocessor()
	f := core.FileRef{}

	p.Enqueue(Edit{File: f, Kind: EditDidChange, Content: "a"})
	p.Enqueue(Edit{File: f, Kind: EditDidChange, Content: "b"})

	drained := p.Drain()
	require.Len(t, drained, 1)
	require.Equal(t, "b", drained[0].Content)
}

func TestPreprocessorDropsCancelledEdits(t *testing.T) {
	p := NewPreprocessor()
	f := core.FileRef{}

	p.Enqueue(Edit{File: f, Kind: EditDidChange, Content: "a"})
	p.Enqueue(Edit{File: f, Cancelled: true})

	require.Empty(t, p.Drain())
}

func TestPreprocessorPreservesArrivalOrderAcrossFiles(t *testing.T) {
	p := NewPreprocessor()
	gs := core.NewGlobalState()
	unf := gs.UnfreezeFileTable()
	a := gs.Files.EnterFile(&core.File{Path: "a.rb"})
	b := gs.Files.EnterFile(&core.File{Path: "b.rb"})
	unf.Done()

	p.Enqueue(Edit{File: b, Content: "first"})
	p.Enqueue(Edit{File: a, Content: "second"})
	drained := p.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, "first", drained[0].Content)
	require.Equal(t, "second", drained[1].Content)
}

func TestSubmitRunsTaskAndReturnsItsResult(t *testing.T) {
	gs := core.NewGlobalState()
	s := New(gs)
	defer s.Stop()

	val, err := s.Submit(Task{Epoch: 1, Run: func(_ context.Context, gs *core.GlobalState) (any, error) {
		return gs.Epoch(), nil
	}})

	require.NoError(t, err)
	require.Equal(t, int64(0), val)
}

func TestSubmitSerializesConcurrentCallers(t *testing.T) {
	gs := core.NewGlobalState()
	s := New(gs)
	defer s.Stop()

	results := make(chan int, 2)
	go func() {
		s.Submit(Task{Epoch: 1, Run: func(_ context.Context, _ *core.GlobalState) (any, error) {
			time.Sleep(5 * time.Millisecond)
			results <- 1
			return nil, nil
		}})
	}()
	go func() {
		s.Submit(Task{Epoch: 2, Run: func(_ context.Context, _ *core.GlobalState) (any, error) {
			results <- 2
			return nil, nil
		}})
	}()

	first := <-results
	second := <-results
	require.ElementsMatch(t, []int{1, 2}, []int{first, second})
}

func TestPreemptCancelsRunningCancellableTask(t *testing.T) {
	gs := core.NewGlobalState()
	s := New(gs)
	defer s.Stop()

	started := make(chan struct{})
	checkpointErr := make(chan error, 1)

	go func() {
		s.Submit(Task{Epoch: 1, Cancellable: true, Run: func(ctx context.Context, _ *core.GlobalState) (any, error) {
			close(started)
			for {
				if err := s.Checkpoint(); err != nil {
					checkpointErr <- err
					return nil, err
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
		}})
	}()

	<-started
	s.Preempt(2)

	select {
	case err := <-checkpointErr:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("preempted task never observed cancellation at a checkpoint")
	}

	s.ResetAfterCancellation()
	require.NoError(t, s.Checkpoint())
}

func TestCancelledMutatingTaskLeavesGlobalStateUntouched(t *testing.T) {
	gs := core.NewGlobalState()
	s := New(gs)
	defer s.Stop()

	started := make(chan struct{})
	go func() {
		s.Submit(Task{
			Epoch:       1,
			Cancellable: true,
			Mutates:     true,
			Run: func(ctx context.Context, workGS *core.GlobalState) (any, error) {
				// A cancellable, mutating Run should be handed a copy: bumping
				// its epoch here must never be visible through the Scheduler's
				// GlobalState unless this run goes on to commit.
				workGS.BumpEpoch()
				close(started)
				for {
					if err := s.Checkpoint(); err != nil {
						return false, nil
					}
					select {
					case <-ctx.Done():
						return false, nil
					case <-time.After(time.Millisecond):
					}
				}
			},
		})
	}()

	<-started
	s.Preempt(2)

	require.Eventually(t, func() bool {
		return s.String() == "scheduler(idle)"
	}, time.Second, time.Millisecond, "preempted task never finished unwinding")

	require.Equal(t, int64(0), s.GlobalState().Epoch(), "a cancelled run must never leave its mutations visible")
	s.ResetAfterCancellation()
}

func TestTryCommitEpochRejectsStaleEpoch(t *testing.T) {
	gs := core.NewGlobalState()
	s := New(gs)
	defer s.Stop()

	gs.BumpEpoch()
	gs.BumpEpoch()

	require.False(t, s.TryCommitEpoch(1, false))
	require.True(t, s.TryCommitEpoch(2, false))
}
