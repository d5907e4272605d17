package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

func newNames() *core.NameTable {
	return core.NewNameTable(core.NewStringPool())
}

func TestStraightLineBodyEndsInReturn(t *testing.T) {
	names := newNames()
	x := names.InternUtf8("x")

	method := &ast.MethodDef{
		Body: &ast.InsSeq{
			Stats: []ast.Node{
				&ast.Assign{Lhs: &ast.Local{Name: x, Unique: 1}, Rhs: &ast.Literal{Kind: core.LiteralInt, IntVal: 1}},
			},
			Expr: &ast.Local{Name: x, Unique: 1},
		},
	}

	g := Build(core.FileRef{}, method)
	entry := g.Block(g.Entry)
	require.Equal(t, TermReturn, entry.Terminator.Kind)
}

func TestIfProducesCondJumpAndJoinBlock(t *testing.T) {
	names := newNames()
	cond := names.InternUtf8("cond")

	method := &ast.MethodDef{
		Body: &ast.If{
			Cond: &ast.Local{Name: cond, Unique: 1},
			Then: &ast.Literal{Kind: core.LiteralInt, IntVal: 1},
			Else: &ast.Literal{Kind: core.LiteralInt, IntVal: 2},
		},
	}

	g := Build(core.FileRef{}, method)
	entry := g.Block(g.Entry)
	require.Equal(t, TermCondJump, entry.Terminator.Kind)
	require.NotEqual(t, entry.Terminator.Then, entry.Terminator.Else)
}

func TestWhileLoopBodyGetsNonZeroLoopDepth(t *testing.T) {
	names := newNames()
	cond := names.InternUtf8("cond")

	method := &ast.MethodDef{
		Body: &ast.While{
			Cond: &ast.Local{Name: cond, Unique: 1},
			Body: &ast.Literal{Kind: core.LiteralInt, IntVal: 1},
		},
	}

	g := Build(core.FileRef{}, method)

	var sawLoopBody bool
	for _, blk := range g.Blocks[1:] {
		if blk.LoopDepth > 0 {
			sawLoopBody = true
		}
	}
	require.True(t, sawLoopBody, "the while body block should have loop depth >= 1")
}

func TestReversePostorderStartsAtEntry(t *testing.T) {
	names := newNames()
	cond := names.InternUtf8("cond")

	method := &ast.MethodDef{
		Body: &ast.If{
			Cond: &ast.Local{Name: cond, Unique: 1},
			Then: &ast.Literal{Kind: core.LiteralInt, IntVal: 1},
			Else: &ast.Literal{Kind: core.LiteralInt, IntVal: 2},
		},
	}

	g := Build(core.FileRef{}, method)
	require.NotEmpty(t, g.RPO)
	require.Equal(t, g.Entry, g.RPO[0])
}
