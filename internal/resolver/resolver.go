// Package resolver walks a file's canonical AST and turns every
// UnresolvedConstant into a ResolvedConstant, threading the nesting stack
// (the chain of enclosing class/module symbols out to the root) that
// determines where a bare constant reference is looked up. It also resolves
// each class's ancestor list and records it on the owning ClassOrModule
// symbol. Resolver mutates GlobalState and must run inside an
// UnfreezeSymbolTable scope; ResolveAll drives the fixed-point loop across
// passes itself (see its doc).
package resolver

import (
	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/diagnostics"
)

// MaxPasses bounds the fixed-point iteration spec.md 4.5 calls for: constants
// may forward-reference constants defined later in the same or another file,
// so Resolver iterates until a pass makes no further progress, then performs
// one final pass that substitutes the untyped-root stub and emits
// unresolved-constant diagnostics for whatever remains -- capped here as a
// non-termination guard against pathological reference cycles.
const MaxPasses = 10

// nesting is the lexical scope chain a constant reference resolves against:
// the class/module it textually sits inside, out to the root.
type nesting struct {
	owner  core.SymbolRef
	parent *nesting
}

// Resolver runs resolution passes against a shared GlobalState.
type Resolver struct {
	gs *core.GlobalState
}

// New builds a Resolver bound to gs. gs's symbol table must already be
// unfrozen by the caller.
func New(gs *core.GlobalState) *Resolver {
	return &Resolver{gs: gs}
}

// FileTree pairs a file with its current canonical tree, the unit
// ResolveAll iterates over.
type FileTree struct {
	File core.FileRef
	Tree ast.Node
}

// ResolveAll runs the bounded fixed-point loop over every tree in trees,
// returning the rewritten trees in the same order. Ancestor lists are
// recorded on ClassOrModule symbols as they resolve. On the final pass any
// constant still unresolved becomes the untyped-root stub and gets a
// stub-constant diagnostic (with a "did you mean" suggestion drawn from
// names visible in its nesting, when one clears the similarity floor).
func (r *Resolver) ResolveAll(trees []FileTree) []ast.Node {
	out := make([]ast.Node, len(trees))
	for i, ft := range trees {
		out[i] = ft.Tree
	}

	for pass := 0; pass < MaxPasses; pass++ {
		progress := false
		for i, ft := range trees {
			rewritten, resolvedHere := r.runPass(ft.File, out[i], false)
			out[i] = rewritten
			if resolvedHere {
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	// Final pass: anything still unresolved gets stubbed and diagnosed.
	for i, ft := range trees {
		rewritten, _ := r.runPass(ft.File, out[i], true)
		out[i] = rewritten
	}
	return out
}

// runPass walks tree once. final selects whether unresolved constants are
// left untouched for a later pass (final == false) or stubbed with a
// diagnostic (final == true). It reports whether any constant was newly
// resolved during this pass.
func (r *Resolver) runPass(file core.FileRef, tree ast.Node, final bool) (ast.Node, bool) {
	p := &pass{r: r, file: file, final: final}
	root := &nesting{owner: r.gs.Symbols.Root()}
	out := p.walk(tree, root)
	return out, p.progressed
}

type pass struct {
	r          *Resolver
	file       core.FileRef
	final      bool
	progressed bool
}

func (p *pass) walk(n ast.Node, ns *nesting) ast.Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *ast.ClassDef:
		c := *t
		c.Ancestors = p.walkAncestors(t, ns)
		childNS := &nesting{owner: t.Symbol, parent: ns}
		c.Body = p.walkVec(t.Body, childNS)
		return &c
	case *ast.MethodDef:
		c := *t
		c.Body = p.walk(t.Body, ns)
		return &c
	case *ast.UnresolvedConstant:
		resolved, ok := p.resolve(t, ns)
		if ok {
			p.progressed = true
			return resolved
		}
		if p.final {
			return p.stub(t, ns)
		}
		return t
	case *ast.If:
		c := *t
		c.Cond = p.walk(t.Cond, ns)
		c.Then = p.walk(t.Then, ns)
		c.Else = p.walk(t.Else, ns)
		return &c
	case *ast.While:
		c := *t
		c.Cond = p.walk(t.Cond, ns)
		c.Body = p.walk(t.Body, ns)
		return &c
	case *ast.Break:
		c := *t
		c.Expr = p.walk(t.Expr, ns)
		return &c
	case *ast.Next:
		c := *t
		c.Expr = p.walk(t.Expr, ns)
		return &c
	case *ast.Return:
		c := *t
		c.Expr = p.walk(t.Expr, ns)
		return &c
	case *ast.Rescue:
		c := *t
		c.Body = p.walk(t.Body, ns)
		c.Cases = p.walkVec(t.Cases, ns)
		c.Else = p.walk(t.Else, ns)
		c.Ensure = p.walk(t.Ensure, ns)
		return &c
	case *ast.RescueCase:
		c := *t
		c.Exceptions = p.walkVec(t.Exceptions, ns)
		c.Body = p.walk(t.Body, ns)
		return &c
	case *ast.Assign:
		c := *t
		c.Lhs = p.walk(t.Lhs, ns)
		c.Rhs = p.walk(t.Rhs, ns)
		return &c
	case *ast.Send:
		c := *t
		c.Recv = p.walk(t.Recv, ns)
		c.Args = p.walkVec(t.Args, ns)
		c.Block = p.walk(t.Block, ns)
		return &c
	case *ast.Block:
		c := *t
		c.Body = p.walk(t.Body, ns)
		return &c
	case *ast.Hash:
		entries := make([]ast.HashEntry, len(t.Entries))
		for i, e := range t.Entries {
			entries[i] = ast.HashEntry{Key: p.walk(e.Key, ns), Value: p.walk(e.Value, ns)}
		}
		c := *t
		c.Entries = entries
		return &c
	case *ast.Array:
		c := *t
		c.Elems = p.walkVec(t.Elems, ns)
		return &c
	case *ast.InsSeq:
		c := *t
		c.Stats = p.walkVec(t.Stats, ns)
		c.Expr = p.walk(t.Expr, ns)
		return &c
	case *ast.Cast:
		c := *t
		c.Expr = p.walk(t.Expr, ns)
		return &c
	default:
		// Local, Literal, UnresolvedIdent, EmptyTree, ResolvedConstant,
		// Arg, ZSuperArgs, RuntimeMethodDefinition carry no constant
		// references of their own.
		return n
	}
}

// walkAncestors resolves a ClassDef's ancestor list against the nesting the
// class itself sits in (not its own body), then records the result on the
// owning symbol: the first ancestor is the superclass for a class, and every
// ancestor is a mixin for a module (or for a class past the first entry).
func (p *pass) walkAncestors(cd *ast.ClassDef, ns *nesting) []ast.Node {
	out := make([]ast.Node, len(cd.Ancestors))
	allResolved := true
	refs := make([]core.SymbolRef, len(cd.Ancestors))
	for i, a := range cd.Ancestors {
		out[i] = p.walk(a, ns)
		if rc, ok := out[i].(*ast.ResolvedConstant); ok {
			refs[i] = rc.Symbol
		} else {
			allResolved = false
		}
	}
	if !allResolved || cd.Symbol.IsZero() {
		return out
	}
	class := p.r.gs.Symbols.Class(cd.Symbol)
	class.Mixins = class.Mixins[:0]
	for i, ref := range refs {
		if i == 0 && class.Kind == core.KindClass {
			class.Superclass = ref
			continue
		}
		class.Mixins = append(class.Mixins, ref)
	}
	return out
}

// resolve attempts to turn uc into a ResolvedConstant. A qualified
// reference (Outer.Inner) resolves its scope first and looks Name up among
// that symbol's members; a bare reference walks ns outward to the root.
func (p *pass) resolve(uc *ast.UnresolvedConstant, ns *nesting) (*ast.ResolvedConstant, bool) {
	if _, bare := uc.Scope.(*ast.EmptyTree); bare {
		for cur := ns; cur != nil; cur = cur.parent {
			if ref, ok := p.lookupMember(cur.owner, uc.Name); ok {
				return &ast.ResolvedConstant{L: uc.L, Symbol: ref}, true
			}
		}
		return nil, false
	}

	scopeNode := p.walk(uc.Scope, ns)
	rc, ok := scopeNode.(*ast.ResolvedConstant)
	if !ok {
		return nil, false
	}
	if ref, ok := p.lookupMember(rc.Symbol, uc.Name); ok {
		return &ast.ResolvedConstant{L: uc.L, Symbol: ref}, true
	}
	return nil, false
}

func (p *pass) lookupMember(owner core.SymbolRef, name core.NameRef) (core.SymbolRef, bool) {
	if owner.Kind != core.SymClassOrModule {
		return core.SymbolRef{}, false
	}
	class := p.r.gs.Symbols.Class(owner)
	ref, ok := class.Members[name]
	return ref, ok
}

// stub substitutes the untyped-root symbol for a constant that never
// resolved, so downstream passes see a concrete symbol instead of
// cascading failures, and records a stub-constant diagnostic carrying a
// "did you mean" suggestion when one clears the similarity floor.
func (p *pass) stub(uc *ast.UnresolvedConstant, ns *nesting) *ast.ResolvedConstant {
	loc := core.Loc{File: p.file, Offsets: uc.L}
	name := p.r.gs.Names.ShowRaw(uc.Name)
	suggestion := bestSuggestion(name, p.candidateNames(ns))
	d := diagnostics.New(diagnostics.CodeUnresolvedConstant, loc, "unresolved constant "+name)
	if suggestion != "" {
		d = d.WithSuggestion(suggestion)
	}
	p.r.gs.Errors.Push(d)
	return &ast.ResolvedConstant{L: uc.L, Symbol: p.r.gs.Symbols.Untyped()}
}

// candidateNames collects member names visible anywhere in ns, the
// candidate pool "did you mean" ranks against.
func (p *pass) candidateNames(ns *nesting) []string {
	var out []string
	for cur := ns; cur != nil; cur = cur.parent {
		if cur.owner.Kind != core.SymClassOrModule {
			continue
		}
		class := p.r.gs.Symbols.Class(cur.owner)
		for member := range class.Members {
			out = append(out, p.r.gs.Names.ShowRaw(member))
		}
	}
	return out
}

func (p *pass) walkVec(nodes []ast.Node, ns *nesting) []ast.Node {
	if nodes == nil {
		return nil
	}
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		out[i] = p.walk(n, ns)
	}
	return out
}
