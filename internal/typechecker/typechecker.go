// Package typechecker is the LSP core spec.md 4.9 describes: one
// GlobalState plus two index caches (indexed, the per-file state behind the
// last committed run, and indexedFinalGS, a snapshot restored whenever a
// slow path is cancelled), exposed through initialize/typecheck/query/
// retypecheck/destroy. Every operation runs as a scheduler.Task so the
// typechecker thread executes them one at a time, same as the teacher's
// index_coordinator.go serializes access to shared index state behind a
// single owner, minus that file's lock-ordering machinery -- this package
// only ever has one GlobalState in flight, so there is nothing to order.
package typechecker

import (
	"context"
	"fmt"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/cfg"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/desugar"
	"github.com/standardbeagle/rbtc/internal/filehash"
	"github.com/standardbeagle/rbtc/internal/infer"
	"github.com/standardbeagle/rbtc/internal/localvars"
	"github.com/standardbeagle/rbtc/internal/namer"
	"github.com/standardbeagle/rbtc/internal/parsefront"
	"github.com/standardbeagle/rbtc/internal/resolver"
	"github.com/standardbeagle/rbtc/internal/rtlog"
	"github.com/standardbeagle/rbtc/internal/scheduler"
	"github.com/standardbeagle/rbtc/internal/workerpool"
)

// FileUpdate is one file's full text, as submitted by the editor front end
// or the CLI's initial file read.
type FileUpdate struct {
	Path    string
	Content []byte
}

// fileRecord is the indexed cache entry spec.md 4.9 calls `indexed`: the
// canonical tree and fingerprint behind the last committed run for one file.
type fileRecord struct {
	content []byte
	tree    ast.Node
	hash    filehash.FileHash
}

// preparedFile is one update after the pipeline stages every path (fast or
// slow) shares: parse, desugar, localvars, and file-table registration.
type preparedFile struct {
	ref     core.FileRef
	path    string
	content []byte
	tree    ast.Node
}

// Typechecker owns one GlobalState (via its Scheduler, which is the only
// thing allowed to swap it) and runs every operation through a
// scheduler.Scheduler so callers never touch it directly.
type Typechecker struct {
	sched *scheduler.Scheduler

	indexed        map[core.FileRef]*fileRecord
	indexedFinalGS *core.GlobalState
}

// New creates a Typechecker over a fresh, empty GlobalState. Call Initialize
// before Typecheck, Query, or Retypecheck.
func New() *Typechecker {
	return &Typechecker{
		sched:   scheduler.New(core.NewGlobalState()),
		indexed: map[core.FileRef]*fileRecord{},
	}
}

// Destroy hands out the underlying GlobalState and stops the typechecker
// thread; the Typechecker is unusable afterward.
func (tc *Typechecker) Destroy() *core.GlobalState {
	tc.sched.Stop()
	return tc.sched.GlobalState()
}

// Initialize runs the initial slow path over every update. It is never
// cancellable: there is no prior committed state to fall back to.
func (tc *Typechecker) Initialize(updates []FileUpdate) error {
	_, err := tc.sched.Submit(scheduler.Task{
		Epoch:       tc.sched.GlobalState().Epoch() + 1,
		Cancellable: false,
		Mutates:     true,
		Run: func(ctx context.Context, gs *core.GlobalState) (any, error) {
			prepared, err := tc.prepareUpdates(gs, updates)
			if err != nil {
				return nil, err
			}
			updated, err := tc.runSlowPath(ctx, gs, prepared)
			if err != nil {
				return nil, err
			}
			for ref, rec := range updated {
				tc.indexed[ref] = rec
			}
			gs.BumpEpoch()
			tc.indexedFinalGS = gs.DeepCopy()
			return nil, nil
		},
	})
	return err
}

// Typecheck applies updates and reports whether the result committed (true)
// or was cancelled by a later, preempting Typecheck/Retypecheck call
// (false). On cancellation the prior committed state remains visible, per
// spec.md Section 5.
func (tc *Typechecker) Typecheck(updates []FileUpdate) bool {
	target := tc.sched.GlobalState().Epoch() + 1
	tc.sched.Preempt(target)

	result, err := tc.sched.Submit(scheduler.Task{
		Epoch:       target,
		Cancellable: true,
		Mutates:     true,
		Run: func(ctx context.Context, gs *core.GlobalState) (any, error) {
			prepared, err := tc.prepareUpdates(gs, updates)
			if err != nil {
				return false, err
			}
			needsSlow, changed := tc.classify(gs, prepared)

			var updated map[core.FileRef]*fileRecord
			var runErr error
			if needsSlow {
				updated, runErr = tc.runSlowPath(ctx, gs, prepared)
			} else {
				updated, runErr = tc.runFastPath(ctx, gs, prepared, changed)
			}
			if runErr != nil {
				return false, runErr
			}
			if !tc.sched.TryCommitEpoch(target, true) {
				return false, nil
			}
			for ref, rec := range updated {
				tc.indexed[ref] = rec
			}
			gs.BumpEpoch()
			tc.indexedFinalGS = gs.DeepCopy()
			return true, nil
		},
	})

	committed, _ := result.(bool)
	if err != nil || !committed {
		tc.sched.ResetAfterCancellation()
		return false
	}
	return true
}

// Retypecheck force-reruns the slow path over exactly the given files
// (e.g. to refresh diagnostics after an earlier edit moved line numbers),
// regardless of whether filehash would have picked the fast path.
func (tc *Typechecker) Retypecheck(paths []string) bool {
	updates := make([]FileUpdate, 0, len(paths))
	for _, p := range paths {
		rec, ok := tc.lookupByPath(p)
		if !ok {
			continue
		}
		updates = append(updates, FileUpdate{Path: p, Content: rec.content})
	}

	target := tc.sched.GlobalState().Epoch() + 1
	tc.sched.Preempt(target)

	result, err := tc.sched.Submit(scheduler.Task{
		Epoch:       target,
		Cancellable: true,
		Mutates:     true,
		Run: func(ctx context.Context, gs *core.GlobalState) (any, error) {
			prepared, err := tc.prepareUpdates(gs, updates)
			if err != nil {
				return false, err
			}
			updated, err := tc.runSlowPath(ctx, gs, prepared)
			if err != nil {
				return false, err
			}
			if !tc.sched.TryCommitEpoch(target, true) {
				return false, nil
			}
			for ref, rec := range updated {
				tc.indexed[ref] = rec
			}
			gs.BumpEpoch()
			tc.indexedFinalGS = gs.DeepCopy()
			return true, nil
		},
	})

	committed, _ := result.(bool)
	if err != nil || !committed {
		tc.sched.ResetAfterCancellation()
		return false
	}
	return true
}

func (tc *Typechecker) lookupByPath(path string) (*fileRecord, bool) {
	ref, ok := tc.sched.GlobalState().Files.Lookup(path)
	if !ok {
		return nil, false
	}
	rec, ok := tc.indexed[ref]
	return rec, ok
}

// Query runs a read-only operation (hover, definition, completion,
// references) against the last committed snapshot. It never mutates
// persistent state: it operates on indexedFinalGS, a copy, so there is
// nothing for a concurrent edit to race with and nothing to restore
// afterward. trees holds each requested file's canonical, post-Namer AST
// (the same tree the committed run indexed), keyed by the FileRef that
// indexes into gs -- a position-based query (hover, definition) walks the
// tree itself rather than reconstructing it from symbol-table state alone.
type Query func(gs *core.GlobalState, files []core.FileRef, trees map[core.FileRef]ast.Node) (any, error)

// RunQuery executes q against the typechecker's last committed state.
func (tc *Typechecker) RunQuery(q Query, paths []string) (any, error) {
	return tc.sched.Submit(scheduler.Task{
		Epoch:       tc.sched.GlobalState().Epoch(),
		Cancellable: true,
		Run: func(ctx context.Context, _ *core.GlobalState) (any, error) {
			if tc.indexedFinalGS == nil {
				return nil, fmt.Errorf("typechecker: query before any committed run")
			}
			snapshot := tc.indexedFinalGS.DeepCopy()
			files := make([]core.FileRef, 0, len(paths))
			trees := make(map[core.FileRef]ast.Node, len(paths))
			for _, p := range paths {
				ref, ok := snapshot.Files.Lookup(p)
				if !ok {
					continue
				}
				files = append(files, ref)
				if rec, ok := tc.indexed[ref]; ok {
					trees[ref] = rec.tree
				}
			}
			return q(snapshot, files, trees)
		},
	})
}

// prepareUpdates runs the pipeline stages every path shares -- parse,
// desugar, localvars, and file-table registration -- common work classify
// needs (to compute the edited file's new shape) and both runSlowPath and
// runFastPath need (a canonical tree to run Infer over).
func (tc *Typechecker) prepareUpdates(gs *core.GlobalState, updates []FileUpdate) ([]preparedFile, error) {
	p, err := parsefront.New(gs.Names)
	if err != nil {
		return nil, fmt.Errorf("typechecker: start parser: %w", err)
	}
	defer p.Close()

	desg := desugar.New(gs.Names)
	out := make([]preparedFile, 0, len(updates))

	for _, u := range updates {
		raw, err := p.Parse(u.Content)
		if err != nil {
			return nil, fmt.Errorf("typechecker: parse %s: %w", u.Path, err)
		}
		tree := desg.Run(raw)
		tree = localvars.New().Run(tree)

		unf := gs.UnfreezeFileTable()
		ref := gs.Files.EnterFile(&core.File{
			Path:   u.Path,
			Source: string(u.Content),
			Lines:  core.NewLineIndex(u.Content),
		})
		unf.Done()

		out = append(out, preparedFile{ref: ref, path: u.Path, content: u.Content, tree: tree})
		if err := tc.sched.Checkpoint(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// classify decides, per spec.md 4.8, whether prepared can take the fast path
// (a filehash.Diff against the indexed record shows no definition-set
// change, only shape changes) or must force the slow path.
func (tc *Typechecker) classify(gs *core.GlobalState, prepared []preparedFile) (needsSlowPath bool, changedMethods map[uint64]bool) {
	changedMethods = map[uint64]bool{}
	for _, pr := range prepared {
		rec, ok := tc.indexed[pr.ref]
		if !ok {
			return true, changedMethods // never-seen file: no prior record to diff against
		}
		newHash := filehash.Compute(gs.Names, pr.tree)
		changed, slow := filehash.Diff(rec.hash, newHash)
		if slow {
			return true, changedMethods
		}
		for k := range changed {
			changedMethods[k] = true
		}
	}
	return false, changedMethods
}

// runFastPath re-typechecks only the methods filehash.Diff flagged as
// changed, plus every other indexed file whose Usages intersect them
// (filehash.AffectedFiles), skipping Namer and Resolver entirely: per
// spec.md 4.8 the fast path never mutates the symbol table. It returns the
// prepared files' new records rather than writing tc.indexed directly --
// same reason as runSlowPath below: a cancelled run must leave tc.indexed
// exactly as it found it, not just gs.
func (tc *Typechecker) runFastPath(ctx context.Context, gs *core.GlobalState, prepared []preparedFile, changedMethods map[uint64]bool) (map[core.FileRef]*fileRecord, error) {
	rtlog.LogScheduler("fast path: %d changed method(s)", len(changedMethods))

	updated := make(map[core.FileRef]*fileRecord, len(prepared))
	for _, pr := range prepared {
		updated[pr.ref] = &fileRecord{
			content: pr.content,
			tree:    pr.tree,
			hash:    filehash.Compute(gs.Names, pr.tree),
		}
	}
	lookup := func(ref core.FileRef) *fileRecord {
		if rec, ok := updated[ref]; ok {
			return rec
		}
		return tc.indexed[ref]
	}

	usages := map[core.FileRef]filehash.FileHash{}
	for ref := range tc.indexed {
		usages[ref] = lookup(ref).hash
	}
	for ref := range updated {
		usages[ref] = lookup(ref).hash
	}
	affected := filehash.AffectedFiles(usages, changedMethods)

	retarget := map[core.FileRef]bool{}
	for _, ref := range affected {
		retarget[ref] = true
	}
	for _, pr := range prepared {
		retarget[pr.ref] = true
	}

	refs := make([]core.FileRef, 0, len(retarget))
	for ref := range retarget {
		refs = append(refs, ref)
	}

	_, err := workerpool.Run(ctx, 0, refs, func(_ context.Context, ref core.FileRef) (struct{}, error) {
		rec := lookup(ref)
		if rec == nil {
			return struct{}{}, nil
		}
		tc.inferFile(gs, ref, rec.tree)
		return struct{}{}, tc.sched.Checkpoint()
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// runSlowPath reruns Namer, Resolver and Infer over prepared's file set:
// spec.md 4.8's "needs slow path" case, and also what Initialize always does.
// It returns the prepared files' new records instead of writing tc.indexed
// itself: on a cancellable run whose caller later finds TryCommitEpoch false,
// gs is a throwaway DeepCopy the Scheduler discards, and tc.indexed must stay
// in lockstep with gs -- committing these records unconditionally here would
// leave tc.indexed pointing at trees and hashes the rolled-back gs no longer
// agrees with.
func (tc *Typechecker) runSlowPath(ctx context.Context, gs *core.GlobalState, prepared []preparedFile) (map[core.FileRef]*fileRecord, error) {
	rtlog.LogScheduler("slow path: %d file(s)", len(prepared))

	unfNames := gs.UnfreezeNameTable()
	unfSyms := gs.UnfreezeSymbolTable()
	nm := namer.New(gs)
	for _, pr := range prepared {
		nm.Run(pr.ref, pr.tree)
	}
	unfSyms.Done()
	unfNames.Done()

	if err := tc.sched.Checkpoint(); err != nil {
		return nil, err
	}

	unfSyms = gs.UnfreezeSymbolTable()
	ftrees := make([]resolver.FileTree, len(prepared))
	for i, pr := range prepared {
		ftrees[i] = resolver.FileTree{File: pr.ref, Tree: pr.tree}
	}
	resolved := resolver.New(gs).ResolveAll(ftrees)
	unfSyms.Done()

	if err := tc.sched.Checkpoint(); err != nil {
		return nil, err
	}

	// workerpool.Run fans these out across goroutines, so each worker
	// returns its record rather than writing a shared map directly -- the
	// map is only ever assembled back on this (the typechecker) goroutine,
	// once every worker has returned.
	records, err := workerpool.Run(ctx, 0, prepared, func(_ context.Context, pr preparedFile) (*fileRecord, error) {
		var tree ast.Node
		for i, p2 := range prepared {
			if p2.ref == pr.ref {
				tree = resolved[i]
				break
			}
		}
		tc.inferFile(gs, pr.ref, tree)
		rec := &fileRecord{content: pr.content, tree: tree, hash: filehash.Compute(gs.Names, tree)}
		return rec, tc.sched.Checkpoint()
	})
	if err != nil {
		return nil, err
	}
	updated := make(map[core.FileRef]*fileRecord, len(prepared))
	for i, pr := range prepared {
		updated[pr.ref] = records[i]
	}
	return updated, nil
}

// inferFile builds a CFG and runs Infer for every method defined in tree.
func (tc *Typechecker) inferFile(gs *core.GlobalState, ref core.FileRef, tree ast.Node) {
	col := &methodCollector{}
	ast.Walk(tree, col)

	inf := infer.New(gs)
	for _, md := range col.methods {
		if md.Symbol.IsZero() {
			continue
		}
		method := gs.Symbols.Method(md.Symbol)
		g := cfg.Build(ref, md)
		inf.Run(ref, method, g)
	}
}

// methodCollector gathers every MethodDef in a tree via ast.Walk's bottom-up
// transform, without rewriting anything.
type methodCollector struct {
	ast.BaseTransformer
	methods []*ast.MethodDef
}

func (c *methodCollector) TransformMethodDef(n *ast.MethodDef) ast.Node {
	c.methods = append(c.methods, n)
	return n
}
