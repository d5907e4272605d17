// Package scheduler implements the fixed three-thread concurrency model
// spec.md Section 5 describes: a preprocessor that coalesces inbound edits,
// a single typechecker thread that serially owns the GlobalState, and a
// preemption manager that lets a newer edit abort a running slow path at its
// next checkpoint. Grounded on the teacher's internal/core/index_coordinator.go
// for the general shape of a coordinator owning shared state behind a mutex
// with context-bounded acquisition -- but not its elaborate lock-ordering
// machinery (StrategyNumeric/Dependency/Priority/Adaptive, topological sort
// over index dependencies), which has no counterpart here: this package only
// ever owns one GlobalState at a time, so there is nothing to order.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/rtlog"
	"github.com/standardbeagle/rbtc/internal/workerpool"
)

// EditKind distinguishes the editor-protocol notifications the preprocessor
// coalesces.
type EditKind int

const (
	EditDidOpen EditKind = iota
	EditDidChange
	EditDidClose
)

// Edit is the opaque descriptor the preprocessor hands the typechecker
// thread; per spec.md Section 5 the preprocessor never lets the typechecker
// thread see raw editor-protocol messages.
type Edit struct {
	File      core.FileRef
	Kind      EditKind
	Content   string
	Cancelled bool
}

// Preprocessor coalesces a stream of inbound edits: adjacent didChange
// notifications for the same file collapse into the file's latest content,
// and edits explicitly marked Cancelled are dropped, never reaching the
// typechecker thread.
type Preprocessor struct {
	mu      sync.Mutex
	pending map[core.FileRef]Edit
	order   []core.FileRef
}

// NewPreprocessor creates an empty coalescing queue.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{pending: map[core.FileRef]Edit{}}
}

// Enqueue records e, replacing any not-yet-drained edit for the same file
// (a later didChange supersedes an earlier one for that file) or dropping it
// outright if e.Cancelled.
func (p *Preprocessor) Enqueue(e Edit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Cancelled {
		delete(p.pending, e.File)
		return
	}
	if _, exists := p.pending[e.File]; !exists {
		p.order = append(p.order, e.File)
	}
	p.pending[e.File] = e
}

// Drain returns every coalesced edit in arrival order (first-enqueued file
// first) and empties the queue.
func (p *Preprocessor) Drain() []Edit {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Edit, 0, len(p.order))
	for _, f := range p.order {
		if e, ok := p.pending[f]; ok {
			out = append(out, e)
		}
	}
	p.pending = map[core.FileRef]Edit{}
	p.order = nil
	return out
}

// TaskFunc is a unit of work the typechecker thread runs with exclusive
// access to gs. A cancellable task should poll ctx.Done() (set when a
// preempting edit arrives) at its per-pass and per-file checkpoints, via the
// Scheduler's Checkpointer.
type TaskFunc func(ctx context.Context, gs *core.GlobalState) (any, error)

// Task is one closure submitted to the typechecker thread, tagged with the
// epoch it targets (spec.md Section 5's cancellation model: a later edit's
// epoch can make an in-flight task's result stale before it even commits).
type Task struct {
	Epoch       int64
	Cancellable bool
	// Mutates marks a Task whose Run writes through its gs parameter (Namer,
	// Resolver, Infer all do; a read-only Query does not). When Mutates and
	// Cancellable are both set, execute runs Run against a throwaway
	// gs.DeepCopy() and only swaps it in as the Scheduler's canonical
	// GlobalState if Run's result is the bool true -- the same convention
	// TryCommitEpoch's callers already use to report whether they committed.
	// A cancelled or erroring run leaves the prior GlobalState completely
	// untouched, since every write landed on the now-discarded copy.
	Mutates bool
	Run     TaskFunc
}

type taskResult struct {
	value any
	err   error
}

// Scheduler is the single typechecker thread: a serial executor that owns
// one *core.GlobalState and runs exactly one Task at a time, plus the
// preemption manager that can cancel whichever task is currently running.
type Scheduler struct {
	gs    *core.GlobalState
	tasks chan taskSubmission
	cp    *workerpool.Checkpointer

	mu sync.Mutex
	// running is the epoch of the task currently executing, or 0 if idle.
	// Epoch 0 is reserved for the GlobalState's pre-edit state and is never
	// a real task's target epoch, so 0 unambiguously means idle.
	running int64
	// runningGS is the live GlobalState the currently executing task was
	// submitted against -- also when a Cancellable, Mutating task's Run
	// works on a throwaway DeepCopy of it. Preempt targets this, never gs
	// directly, since gs may already have been swapped to a just-committed
	// copy by the time Preempt observes running != 0.
	runningGS *core.GlobalState

	stop chan struct{}
	wg   sync.WaitGroup
}

type taskSubmission struct {
	task Task
	done chan taskResult
}

// New starts the typechecker thread over gs. Callers must call Stop once
// done to let the goroutine exit.
func New(gs *core.GlobalState) *Scheduler {
	s := &Scheduler{
		gs:    gs,
		tasks: make(chan taskSubmission, 64),
		cp:    &workerpool.Checkpointer{},
		stop:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Stop drains no further tasks and waits for the thread to exit. A task
// already running is allowed to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case sub := <-s.tasks:
			s.execute(sub)
		}
	}
}

func (s *Scheduler) execute(sub taskSubmission) {
	s.mu.Lock()
	s.running = sub.task.Epoch
	live := s.gs
	s.runningGS = live
	s.mu.Unlock()
	rtlog.LogScheduler("executing epoch %d (cancellable=%v)", sub.task.Epoch, sub.task.Cancellable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workGS := live
	copied := sub.task.Cancellable && sub.task.Mutates
	if sub.task.Cancellable {
		live.ClearCancel()
		if copied {
			workGS = live.DeepCopy()
		}
		go s.watchCancel(ctx, cancel, live)
	}

	val, err := sub.task.Run(ctx, workGS)

	s.mu.Lock()
	if copied && err == nil {
		if committed, _ := val.(bool); committed {
			s.gs = workGS
		}
	}
	s.running = 0
	s.runningGS = nil
	s.mu.Unlock()

	if sub.done != nil {
		sub.done <- taskResult{value: val, err: err}
	}
}

// GlobalState returns the Scheduler's current canonical GlobalState. Callers
// must only treat the returned pointer as a live, committed snapshot -- a
// concurrently running cancellable+Mutates Task may be writing to its own
// gs.DeepCopy() instead, which this never exposes until execute swaps it in.
func (s *Scheduler) GlobalState() *core.GlobalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gs
}

// watchCancel bridges the GlobalState's cooperative cancellation flag (set
// by Preempt) to ctx, so a Task's Run can select on ctx.Done() instead of
// polling gs.CancelRequested() directly. target is the GlobalState the
// currently running task was submitted against -- not s.gs, which execute
// may have already swapped to a different, unrelated committed copy by the
// time this goroutine gets scheduled again.
func (s *Scheduler) watchCancel(ctx context.Context, cancel context.CancelFunc, target *core.GlobalState) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if target.CancelRequested() {
				cancel()
				return
			}
		}
	}
}

// Submit enqueues t and blocks until it has run, returning its result. The
// typechecker thread executes at most one task at a time, so Submit from
// multiple goroutines serializes naturally through the tasks channel.
func (s *Scheduler) Submit(t Task) (any, error) {
	done := make(chan taskResult, 1)
	s.tasks <- taskSubmission{task: t, done: done}
	r := <-done
	return r.value, r.err
}

// Preempt asks whichever task is currently running to abort at its next
// checkpoint, because a newer edit has made its result obsolete. It is a
// no-op if nothing is running or the running task targets an epoch at or
// after newEpoch already.
func (s *Scheduler) Preempt(newEpoch int64) {
	s.mu.Lock()
	running := s.running
	runningGS := s.runningGS
	s.mu.Unlock()

	if running == 0 || running >= newEpoch {
		return
	}
	rtlog.LogScheduler("preempting epoch %d in favor of epoch %d", running, newEpoch)
	if runningGS != nil {
		runningGS.RequestCancel()
	}
	s.cp.Cancel()
}

// TryCommitEpoch reports whether a slow path that started targeting
// targetEpoch may still commit its result: it may not if a newer edit has
// since bumped the epoch past it, or (for a cancellable run) if a
// preemption was requested. Callers that get false must discard their
// mutable GlobalState copy and return a canceled run, per spec.md Section 5.
// Called from within a Task's own Run, so s.runningGS is always this task's
// own live/runningGS value -- no lock ordering hazard with execute's swap,
// which only happens after Run returns.
func (s *Scheduler) TryCommitEpoch(targetEpoch int64, cancellable bool) bool {
	s.mu.Lock()
	runningGS := s.runningGS
	s.mu.Unlock()
	if runningGS == nil {
		runningGS = s.GlobalState()
	}
	if cancellable && runningGS.CancelRequested() {
		return false
	}
	return runningGS.Epoch() <= targetEpoch
}

// Checkpoint is the preemption checkpoint a slow-path Task polls between
// passes and between per-file units, per spec.md Section 5. It returns
// workerpool.ErrCancelled once Preempt has fired for this run.
func (s *Scheduler) Checkpoint() error {
	return s.cp.Checkpoint()
}

// resetCheckpoint prepares a fresh Checkpointer for the next cancellable run;
// execute does not call this directly since Checkpointer has no un-cancel,
// so a canceled run's Scheduler must be given a new one before accepting
// further cancellable tasks.
func (s *Scheduler) resetCheckpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = &workerpool.Checkpointer{}
}

// ResetAfterCancellation must be called once a canceled slow path has fully
// unwound and discarded its partial GlobalState copy, before Submit-ing the
// next cancellable Task. Forgetting this leaves every subsequent task
// observing a permanently cancelled Checkpointer.
func (s *Scheduler) ResetAfterCancellation() {
	s.GlobalState().ClearCancel()
	s.resetCheckpoint()
}

// String helps tests and logs identify which epoch (if any) is in flight.
func (s *Scheduler) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == 0 {
		return "scheduler(idle)"
	}
	return fmt.Sprintf("scheduler(running epoch %d)", s.running)
}
