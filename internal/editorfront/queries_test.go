package editorfront

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/namer"
	"github.com/standardbeagle/rbtc/internal/resolver"
)

// enterNamer runs Namer over tree under its own unfreeze scope, matching
// resolver's own test helper: Namer must complete (and release its
// capabilities) before Resolver sees the tree.
func enterNamer(gs *core.GlobalState, file core.FileRef, tree ast.Node) {
	unf := gs.UnfreezeSymbolTable()
	defer unf.Done()
	namer.New(gs).Run(file, tree)
}

// fixture builds a small, hand-assembled GlobalState with one file:
//
//	class Greeter
//	  def hello(name)
//	  end
//	end
//	Greeter
//
// offsets are computed against that literal source so hover/definition can
// be exercised at realistic cursor positions rather than synthetic ones.
type fixture struct {
	gs    *core.GlobalState
	file  core.FileRef
	tree  ast.Node
	class *ast.ClassDef
	method *ast.MethodDef
	ref    *ast.ResolvedConstant
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	src := "class Greeter\n  def hello(name)\n  end\nend\nGreeter\n"

	gs := core.NewGlobalState()
	uf := gs.UnfreezeFileTable()
	file := gs.Files.EnterFile(&core.File{Path: "greeter.rb", Source: src, Lines: core.NewLineIndex([]byte(src))})
	uf.Done()

	greeterName := gs.Names.InternConstant("Greeter")
	helloName := gs.Names.InternUtf8("hello")
	nameArgName := gs.Names.InternUtf8("name")

	// "class Greeter" spans [0, 13); "def hello(name)" spans [16, 31);
	// the whole class (through its "end") spans [0, 41); the trailing
	// top-level "Greeter" reference spans [42, 49).
	classLoc := core.LocOffsets{Begin: 0, End: 41}
	classDeclLoc := core.LocOffsets{Begin: 0, End: 13}
	methodLoc := core.LocOffsets{Begin: 16, End: 31}
	methodDeclLoc := core.LocOffsets{Begin: 16, End: 31}
	argLoc := core.LocOffsets{Begin: 26, End: 30}
	topRefLoc := core.LocOffsets{Begin: 42, End: 49}

	arg := &ast.Arg{L: argLoc, Name: nameArgName, Kind: core.ArgPositional}
	method := &ast.MethodDef{
		L:       methodLoc,
		DeclLoc: methodDeclLoc,
		Name:    helloName,
		Args:    []ast.Node{arg},
		Body:    &ast.EmptyTree{},
	}
	class := &ast.ClassDef{
		L:       classLoc,
		DeclLoc: classDeclLoc,
		Name:    &ast.UnresolvedConstant{Scope: &ast.EmptyTree{}, Name: greeterName},
		Kind:    ast.ClassKindClass,
		Body:    []ast.Node{method},
	}
	topRef := &ast.UnresolvedConstant{L: topRefLoc, Scope: &ast.EmptyTree{}, Name: greeterName}
	tree := &ast.InsSeq{L: core.LocOffsets{Begin: 0, End: uint32(len(src))}, Stats: []ast.Node{class}, Expr: topRef}

	enterNamer(gs, file, tree)

	unf := gs.UnfreezeSymbolTable()
	out := resolver.New(gs).ResolveAll([]resolver.FileTree{{File: file, Tree: tree}})
	unf.Done()
	require.Len(t, out, 1)

	resolvedTree := out[0].(*ast.InsSeq)
	resolvedRef := resolvedTree.Expr.(*ast.ResolvedConstant)

	return fixture{gs: gs, file: file, tree: resolvedTree, class: class, method: method, ref: resolvedRef}
}

func TestHoverOnMethodDefDescribesTheMethod(t *testing.T) {
	fx := newFixture(t)

	info := Hover(fx.gs, fx.tree, 20) // inside "def hello(name)"
	require.True(t, info.Found)
	require.Equal(t, "method", info.Kind)
	require.Equal(t, "hello", info.Name)
	require.Equal(t, "def hello(name)", info.Summary)
}

func TestHoverOnClassDefDescribesTheClass(t *testing.T) {
	fx := newFixture(t)

	info := Hover(fx.gs, fx.tree, 6) // inside "class Greeter"
	require.True(t, info.Found)
	require.Equal(t, "class_or_module", info.Kind)
	require.Equal(t, "Greeter", info.Name)
	require.Equal(t, "class", info.Summary)
}

func TestHoverOnResolvedConstantDescribesItsTarget(t *testing.T) {
	fx := newFixture(t)

	info := Hover(fx.gs, fx.tree, 44) // inside the trailing "Greeter" reference
	require.True(t, info.Found)
	require.Equal(t, "class_or_module", info.Kind)
	require.Equal(t, "Greeter", info.Name)
}

func TestHoverOutsideAnyNodeFindsNothing(t *testing.T) {
	fx := newFixture(t)

	info := Hover(fx.gs, fx.tree, 1_000_000)
	require.False(t, info.Found)
}

func TestDefinitionOnTopLevelReferenceJumpsToTheClassDecl(t *testing.T) {
	fx := newFixture(t)

	loc, ok := Definition(fx.gs, fx.tree, 44)
	require.True(t, ok)
	require.Equal(t, "greeter.rb", loc.Path)
	require.Equal(t, 0, loc.Start.Line)
	require.Equal(t, 0, loc.Start.Character)
}

func TestDefinitionWithNoSymbolUnderCursorFails(t *testing.T) {
	fx := newFixture(t)

	_, ok := Definition(fx.gs, fx.tree, 1_000_000)
	require.False(t, ok)
}

func TestReferencesFindsTheTopLevelUse(t *testing.T) {
	fx := newFixture(t)

	trees := map[core.FileRef]ast.Node{fx.file: fx.tree}
	locs := References(fx.gs, trees, fx.class.Symbol)
	require.Len(t, locs, 1)
	require.Equal(t, "greeter.rb", locs[0].Path)
}

func TestCompletionListsClassMembersMatchingPrefix(t *testing.T) {
	fx := newFixture(t)

	names := Completion(fx.gs, fx.tree, 20, "")
	require.Equal(t, []string{"hello"}, names)

	require.Empty(t, Completion(fx.gs, fx.tree, 20, "zzz"))
}

func TestCompletionOutsideAnyClassFindsNothing(t *testing.T) {
	fx := newFixture(t)

	require.Empty(t, Completion(fx.gs, fx.tree, 44, ""))
}

func TestOffsetOfConvertsEditorPositionUsingTheFilesLineIndex(t *testing.T) {
	fx := newFixture(t)
	f := fx.gs.Files.Get(fx.file)

	require.Equal(t, uint32(0), offsetOf(f, Position{Line: 0, Character: 0}))
	require.Equal(t, uint32(6), offsetOf(f, Position{Line: 0, Character: 6}))
}
