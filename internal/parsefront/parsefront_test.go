package parsefront

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

func newTestParser(t *testing.T) (*Parser, *core.NameTable) {
	t.Helper()
	pool := core.NewStringPool()
	names := core.NewNameTable(pool)
	p, err := New(names)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, names
}

func TestParseSimpleClassProducesClassDef(t *testing.T) {
	p, _ := newTestParser(t)
	src := []byte("class Greeter:\n    def hello(self, name):\n        return name\n")

	tree, err := p.Parse(src)
	require.NoError(t, err)

	seq, ok := tree.(*ast.InsSeq)
	require.True(t, ok, "root must be an InsSeq")
	require.Equal(t, ast.TagClassDef, seq.Expr.Tag())

	class := seq.Expr.(*ast.ClassDef)
	require.Len(t, class.Body, 1)
	require.Equal(t, ast.TagMethodDef, class.Body[0].Tag())
}

func TestParseForLoopProducesForInSugarNode(t *testing.T) {
	p, _ := newTestParser(t)
	src := []byte("for x in items:\n    print(x)\n")

	tree, err := p.Parse(src)
	require.NoError(t, err)

	seq := tree.(*ast.InsSeq)
	require.Equal(t, ast.TagForIn, seq.Expr.Tag())
}

func TestParseAugmentedAssignmentProducesOpAssignSugarNode(t *testing.T) {
	p, _ := newTestParser(t)
	src := []byte("x += 1\n")

	tree, err := p.Parse(src)
	require.NoError(t, err)

	seq := tree.(*ast.InsSeq)
	require.Equal(t, ast.TagOpAssign, seq.Expr.Tag())
}

func TestParseMultiAssignmentProducesMultiAssignSugarNode(t *testing.T) {
	p, _ := newTestParser(t)
	src := []byte("a, b = b, a\n")

	tree, err := p.Parse(src)
	require.NoError(t, err)

	seq := tree.(*ast.InsSeq)
	require.Equal(t, ast.TagMultiAssign, seq.Expr.Tag())
}
