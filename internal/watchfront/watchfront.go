// Package watchfront turns real file system events into the coalesced edit
// descriptors spec.md's preprocessor consumes, so "watch a directory and
// keep typechecking it" is backed by a real fsnotify.Watcher rather than
// only ever driven by an editor's didChange notifications. Grounded on the
// teacher's internal/indexing.FileWatcher/eventDebouncer (recursive
// directory watch, symlink-cycle guard, pattern-filtered debounced batch
// flush), retargeted from indexer rebuild callbacks to emitting PathEdits a
// Typechecker's Typecheck/Retypecheck can consume directly.
package watchfront

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/rbtc/internal/config"
	"github.com/standardbeagle/rbtc/internal/rtlog"
)

// Kind mirrors scheduler.EditKind for the path-addressed edits this package
// produces, before a path has been assigned a core.FileRef.
type Kind int

const (
	KindCreate Kind = iota
	KindWrite
	KindRemove
)

// PathEdit is one coalesced, debounced file system change.
type PathEdit struct {
	Path string
	Kind Kind
}

// queue coalesces PathEdits per path, collapsing adjacent writes the same
// way scheduler.Preprocessor collapses same-file edits: the latest kind for
// a path wins, and Drain empties the queue in arrival order.
type queue struct {
	mu      sync.Mutex
	pending map[string]Kind
	order   []string
}

func newQueue() *queue {
	return &queue{pending: map[string]Kind{}}
}

func (q *queue) add(path string, kind Kind) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.pending[path]; !exists {
		q.order = append(q.order, path)
	}
	q.pending[path] = kind
}

func (q *queue) drain() []PathEdit {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PathEdit, 0, len(q.order))
	for _, p := range q.order {
		out = append(out, PathEdit{Path: p, Kind: q.pending[p]})
	}
	q.pending = map[string]Kind{}
	q.order = nil
	return out
}

// Watcher recursively watches a project root and delivers debounced,
// pattern-filtered PathEdits to a caller-supplied handler.
type Watcher struct {
	fsw      *fsnotify.Watcher
	matcher  *config.Matcher
	root     string
	debounce time.Duration

	onEdits func([]PathEdit)

	q     *queue
	timer *time.Timer
	tmu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Watcher over root using cfg's Include/Exclude/gitignore
// rules to decide which paths are worth delivering. debounce of 0 uses
// 300ms, matching the teacher's default WatchDebounceMs.
func New(cfg *config.Config, root string, debounce time.Duration, onEdits func([]PathEdit)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsw:      fsw,
		matcher:  config.NewMatcher(cfg, root),
		root:     root,
		debounce: debounce,
		onEdits:  onEdits,
		q:        newQueue(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds recursive watches under root and begins delivering edits.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop cancels the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := map[string]bool{}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		rel, _ := filepath.Rel(w.root, path)
		if rel != "." && !w.matcher.Included(rel+"/x") {
			// Sentinel suffix lets a directory-shaped exclude glob (e.g.
			// "**/node_modules/**") match a bare directory path.
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			rtlog.Log("watchfront", "failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			rtlog.Log("watchfront", "watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)
	if statErr != nil {
		if event.Op&fsnotify.Remove != 0 {
			w.queueIfIncluded(event.Name, KindRemove)
		}
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.fsw.Add(event.Name); err != nil {
				rtlog.Log("watchfront", "failed to watch new directory %s: %v", event.Name, err)
			}
		}
		return
	}

	var kind Kind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = KindCreate
	case event.Op&fsnotify.Write != 0:
		kind = KindWrite
	case event.Op&fsnotify.Remove != 0:
		kind = KindRemove
	case event.Op&fsnotify.Rename != 0:
		kind = KindWrite
	default:
		return
	}
	w.queueIfIncluded(event.Name, kind)
}

func (w *Watcher) queueIfIncluded(path string, kind Kind) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	if !w.matcher.Included(rel) {
		return
	}
	w.q.add(path, kind)
	w.resetTimer()
}

func (w *Watcher) resetTimer() {
	w.tmu.Lock()
	defer w.tmu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	edits := w.q.drain()
	if len(edits) == 0 || w.onEdits == nil {
		return
	}
	w.onEdits(edits)
}
