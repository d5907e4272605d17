package ast

import (
	"testing"

	"github.com/standardbeagle/rbtc/internal/core"
)

type bumpIntLiterals struct {
	BaseTransformer
	by int64
}

func (b bumpIntLiterals) TransformLiteral(n *Literal) Node {
	if n.Kind == core.LiteralInt {
		n.IntVal += b.by
	}
	return n
}

func TestWalkRewritesMatchingNodesOnly(t *testing.T) {
	tree := &Array{Elems: []Node{
		&Literal{Kind: core.LiteralInt, IntVal: 1},
		&Literal{Kind: core.LiteralString, StrVal: core.NameRef{}},
		&Literal{Kind: core.LiteralInt, IntVal: 2},
	}}

	out := Walk(tree, bumpIntLiterals{by: 10}).(*Array)

	got := []int64{}
	for _, e := range out.Elems {
		if lit, ok := e.(*Literal); ok && lit.Kind == core.LiteralInt {
			got = append(got, lit.IntVal)
		}
	}
	if len(got) != 2 || got[0] != 11 || got[1] != 12 {
		t.Fatalf("expected int literals bumped by 10, got %v", got)
	}
}

func TestWalkDefaultTransformerIsIdentity(t *testing.T) {
	tree := &If{
		Cond: &Literal{Kind: core.LiteralBool, BoolVal: true},
		Then: &Return{Expr: &EmptyTree{}},
		Else: &EmptyTree{},
	}
	out := Walk(tree, BaseTransformer{})
	if !StructurallyEqual(tree, out) {
		t.Fatalf("walking with BaseTransformer must preserve structure")
	}
}

func TestVisitVisitsEveryDescendant(t *testing.T) {
	tree := &Send{
		Recv: &UnresolvedIdent{Name: core.NameRef{}},
		Args: []Node{&Literal{Kind: core.LiteralInt, IntVal: 1}, &Literal{Kind: core.LiteralInt, IntVal: 2}},
	}
	count := 0
	Visit(tree, func(n Node) { count++ })
	// Send + Recv + 2 Args == 4
	if count != 4 {
		t.Fatalf("expected 4 visited nodes, got %d", count)
	}
}
