package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/namer"
)

func newGS() *core.GlobalState {
	return core.NewGlobalState()
}

// enterNamer runs Namer over tree under its own unfreeze scope, the way the
// real pipeline sequences Namer before Resolver.
func enterNamer(gs *core.GlobalState, file core.FileRef, tree ast.Node) {
	unf := gs.UnfreezeSymbolTable()
	defer unf.Done()
	namer.New(gs).Run(file, tree)
}

func TestForwardReferenceToSiblingClassResolves(t *testing.T) {
	gs := newGS()
	file := core.FileRef{}

	aName := gs.Names.InternConstant("A")
	bName := gs.Names.InternConstant("B")
	xName := gs.Names.InternConstant("X")

	classA := &ast.ClassDef{
		Name: &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: aName},
		Kind: ast.ClassKindClass,
		Body: []ast.Node{
			&ast.Assign{
				Lhs: &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: xName},
				Rhs: &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: bName},
			},
		},
	}
	classB := &ast.ClassDef{
		Name: &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: bName},
		Kind: ast.ClassKindClass,
	}
	tree := &ast.InsSeq{Stats: []ast.Node{classA, classB}, Expr: &ast.EmptyTree{}}

	enterNamer(gs, file, tree)

	unf := gs.UnfreezeSymbolTable()
	out := resolveOne(t, gs, file, tree)
	unf.Done()

	ins := out.(*ast.InsSeq)
	a := ins.Stats[0].(*ast.ClassDef)
	assign := a.Body[0].(*ast.Assign)
	resolved, ok := assign.Rhs.(*ast.ResolvedConstant)
	require.True(t, ok, "forward reference to a sibling class must resolve once B is registered")

	b := ins.Stats[1].(*ast.ClassDef)
	require.Equal(t, b.Symbol, resolved.Symbol)
}

func TestSuperclassAncestorResolvesAndRecordsOnSymbol(t *testing.T) {
	gs := newGS()
	file := core.FileRef{}

	baseName := gs.Names.InternConstant("Base")
	subName := gs.Names.InternConstant("Sub")

	classBase := &ast.ClassDef{
		Name: &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: baseName},
		Kind: ast.ClassKindClass,
	}
	classSub := &ast.ClassDef{
		Name:      &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: subName},
		Kind:      ast.ClassKindClass,
		Ancestors: []ast.Node{&ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: baseName}},
	}
	tree := &ast.InsSeq{Stats: []ast.Node{classBase, classSub}, Expr: &ast.EmptyTree{}}

	enterNamer(gs, file, tree)

	unf := gs.UnfreezeSymbolTable()
	resolveOne(t, gs, file, tree)
	unf.Done()

	sub := gs.Symbols.Class(classSub.Symbol)
	require.Equal(t, classBase.Symbol, sub.Superclass)
}

func TestUnresolvedConstantStubsToUntypedAndEmitsDiagnostic(t *testing.T) {
	gs := newGS()
	file := core.FileRef{}

	tree := &ast.InsSeq{
		Expr: &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: gs.Names.InternConstant("Zzzzz")},
	}

	enterNamer(gs, file, tree)

	unf := gs.UnfreezeSymbolTable()
	out := resolveOne(t, gs, file, tree)
	unf.Done()

	resolved := out.(*ast.InsSeq).Expr.(*ast.ResolvedConstant)
	require.Equal(t, gs.Symbols.Untyped(), resolved.Symbol)
	require.NotEmpty(t, gs.Errors.Drain())
}

// resolveOne is a one-file convenience wrapper over ResolveAll for tests
// that don't need multi-file fixed-point behavior.
func resolveOne(t *testing.T, gs *core.GlobalState, file core.FileRef, tree ast.Node) ast.Node {
	t.Helper()
	out := New(gs).ResolveAll([]FileTree{{File: file, Tree: tree}})
	require.Len(t, out, 1)
	return out[0]
}
