// Package localvars assigns every lexical local a stable, scope-disambiguated
// identity: each UnresolvedIdent that names a local already assigned earlier
// in an enclosing, non-shadowing scope becomes a Local carrying a
// compiler-private version tag. Identifiers never assigned anywhere in
// scope are left as UnresolvedIdent for a later pass to treat as an
// implicit self-send -- LocalVars never fails, it only renames what it can
// prove is a local.
package localvars

import (
	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

// scope is one lexical frame: a method body or a shadowing block. Reads and
// writes that don't first-bind in the current frame fall through to parent,
// matching the host language's "assignment anywhere in an enclosing,
// non-shadowed scope is the same variable" rule.
type scope struct {
	bindings map[core.NameRef]int
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[core.NameRef]int), parent: parent}
}

func (s *scope) lookup(name core.NameRef) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if id, ok := cur.bindings[name]; ok {
			return id, true
		}
	}
	return 0, false
}

func (s *scope) bind(name core.NameRef, id int) {
	s.bindings[name] = id
}

// LocalVars runs one pass over a file's canonical AST.
type LocalVars struct {
	nextID int
}

// New builds a fresh LocalVars pass. Each pass instance owns its own id
// counter, so ids are only unique within one Run call's output tree.
func New() *LocalVars {
	return &LocalVars{}
}

// Run rewrites tree's UnresolvedIdent(Local) occurrences into Local nodes.
func (lv *LocalVars) Run(tree ast.Node) ast.Node {
	root := newScope(nil)
	return lv.walk(tree, root)
}

func (lv *LocalVars) fresh() int {
	lv.nextID++
	return lv.nextID
}

func (lv *LocalVars) walk(n ast.Node, s *scope) ast.Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *ast.MethodDef:
		methodScope := newScope(nil) // methods never see an enclosing method's locals
		args := make([]ast.Node, len(t.Args))
		for i, a := range t.Args {
			args[i] = lv.bindArg(a, methodScope)
		}
		body := lv.walk(t.Body, methodScope)
		c := *t
		c.Args = args
		c.Body = body
		return &c

	case *ast.Block:
		blockScope := newScope(s)
		args := make([]ast.Node, len(t.Args))
		for i, a := range t.Args {
			args[i] = lv.bindArg(a, blockScope)
		}
		body := lv.walk(t.Body, blockScope)
		c := *t
		c.Args = args
		c.Body = body
		return &c

	case *ast.RescueCase:
		caseScope := newScope(s)
		var v ast.Node = t.Var
		if local, ok := t.Var.(*ast.Local); ok {
			id := lv.fresh()
			caseScope.bind(local.Name, id)
			cp := *local
			cp.Unique = id
			v = &cp
		}
		c := *t
		c.Exceptions = lv.walkVec(t.Exceptions, s)
		c.Var = v
		c.Body = lv.walk(t.Body, caseScope)
		return &c

	case *ast.Assign:
		rhs := lv.walk(t.Rhs, s)
		lhs := lv.walkAssignTarget(t.Lhs, s)
		c := *t
		c.Lhs, c.Rhs = lhs, rhs
		return &c

	case *ast.UnresolvedIdent:
		if id, ok := s.lookup(t.Name); ok {
			return &ast.Local{L: t.L, Name: t.Name, Unique: id}
		}
		return t

	case *ast.ClassDef:
		c := *t
		c.Name = lv.walk(t.Name, s)
		c.Ancestors = lv.walkVec(t.Ancestors, s)
		c.Body = lv.walkVec(t.Body, s)
		return &c
	case *ast.If:
		c := *t
		c.Cond = lv.walk(t.Cond, s)
		c.Then = lv.walk(t.Then, s)
		c.Else = lv.walk(t.Else, s)
		return &c
	case *ast.While:
		c := *t
		c.Cond = lv.walk(t.Cond, s)
		c.Body = lv.walk(t.Body, s)
		return &c
	case *ast.Break:
		c := *t
		c.Expr = lv.walk(t.Expr, s)
		return &c
	case *ast.Next:
		c := *t
		c.Expr = lv.walk(t.Expr, s)
		return &c
	case *ast.Return:
		c := *t
		c.Expr = lv.walk(t.Expr, s)
		return &c
	case *ast.Rescue:
		c := *t
		c.Body = lv.walk(t.Body, s)
		c.Cases = lv.walkVec(t.Cases, s)
		c.Else = lv.walk(t.Else, s)
		c.Ensure = lv.walk(t.Ensure, s)
		return &c
	case *ast.Send:
		c := *t
		c.Recv = lv.walk(t.Recv, s)
		c.Args = lv.walkVec(t.Args, s)
		c.Block = lv.walk(t.Block, s)
		return &c
	case *ast.Hash:
		entries := make([]ast.HashEntry, len(t.Entries))
		for i, e := range t.Entries {
			entries[i] = ast.HashEntry{Key: lv.walk(e.Key, s), Value: lv.walk(e.Value, s)}
		}
		c := *t
		c.Entries = entries
		return &c
	case *ast.Array:
		c := *t
		c.Elems = lv.walkVec(t.Elems, s)
		return &c
	case *ast.InsSeq:
		c := *t
		c.Stats = lv.walkVec(t.Stats, s)
		c.Expr = lv.walk(t.Expr, s)
		return &c
	case *ast.Cast:
		c := *t
		c.Expr = lv.walk(t.Expr, s)
		return &c
	case *ast.Arg:
		c := *t
		c.Default = lv.walk(t.Default, s)
		return &c
	default:
		// Leaves (Literal, Local, EmptyTree, ResolvedConstant, ZSuperArgs,
		// RuntimeMethodDefinition, UnresolvedConstant) carry no sub-scope.
		return n
	}
}

// walkAssignTarget binds a first-seen identifier target in place, rather
// than treating it as a read.
func (lv *LocalVars) walkAssignTarget(n ast.Node, s *scope) ast.Node {
	ident, ok := n.(*ast.UnresolvedIdent)
	if !ok {
		return lv.walk(n, s)
	}
	if id, ok := s.lookup(ident.Name); ok {
		return &ast.Local{L: ident.L, Name: ident.Name, Unique: id}
	}
	id := lv.fresh()
	s.bind(ident.Name, id)
	return &ast.Local{L: ident.L, Name: ident.Name, Unique: id}
}

func (lv *LocalVars) bindArg(n ast.Node, s *scope) ast.Node {
	arg, ok := n.(*ast.Arg)
	if !ok {
		return lv.walk(n, s)
	}
	id := lv.fresh()
	s.bind(arg.Name, id)
	c := *arg
	c.Unique = id
	c.Default = lv.walk(arg.Default, s)
	return &c
}

func (lv *LocalVars) walkVec(nodes []ast.Node, s *scope) []ast.Node {
	if nodes == nil {
		return nil
	}
	out := make([]ast.Node, len(nodes))
	for i, n := range nodes {
		out[i] = lv.walk(n, s)
	}
	return out
}
