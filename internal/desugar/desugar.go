// Package desugar lowers the untyped parse tree parsefront produces into
// the canonical AST every later pass expects. It is structural only: it
// never consults a symbol table, never needs a GlobalState, and is
// idempotent on input that is already canonical (none of its Transform
// methods match a node kind that cannot themselves appear in its own
// output, so a second pass over desugared output is a no-op walk).
package desugar

import (
	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

// tempBase is the original name every compiler-introduced temporary hangs
// its UniqueName off of; FreshUnique's (original, kind, version) triple is
// what actually disambiguates distinct temporaries, not this string.
const tempBase = "<desugar-tmp>"

// Desugar runs one bottom-up rewrite pass over a parse tree, eliminating
// ForIn, OpAssign, MultiAssign and StringInterp sugar nodes.
type Desugar struct {
	names   *core.NameTable
	tempSym core.NameRef
	version int
}

// New builds a Desugar pass that interns fresh temporary names into names.
func New(names *core.NameTable) *Desugar {
	return &Desugar{names: names, tempSym: names.InternUtf8(tempBase)}
}

// Run lowers tree in place, returning the canonical rewritten tree.
func (d *Desugar) Run(tree ast.Node) ast.Node {
	return ast.Walk(tree, &transformer{d: d})
}

func (d *Desugar) freshLocal(loc core.LocOffsets) *ast.Local {
	d.version++
	name := d.names.FreshUnique(d.tempSym, core.MangledTemp, d.version)
	return &ast.Local{L: loc, Name: name, Unique: d.version}
}

type transformer struct {
	ast.BaseTransformer
	d *Desugar
}

// TransformForIn lowers `for Var in Iter: Body` into `Iter.each { |Var| Body }`.
func (t *transformer) TransformForIn(n *ast.ForIn) ast.Node {
	return &ast.Send{
		L:    n.L,
		Recv: n.Iter,
		Fun:  t.d.names.InternUtf8("each"),
		Block: &ast.Block{
			L:    n.L,
			Args: []ast.Node{n.Var},
			Body: n.Body,
		},
	}
}

// TransformOpAssign lowers `Lhs op= Rhs` into `Lhs = Lhs op Rhs`, evaluating
// any receiver/index subexpression of Lhs exactly once via a temporary.
func (t *transformer) TransformOpAssign(n *ast.OpAssign) ast.Node {
	switch lhs := n.Lhs.(type) {
	case *ast.Send:
		if lhs.Fun == t.d.names.InternUtf8("[]") {
			return t.lowerIndexOpAssign(n, lhs)
		}
		return t.lowerAttrOpAssign(n, lhs)
	default:
		readCopy := ast.DeepCopy(n.Lhs)
		call := &ast.Send{L: n.L, Recv: readCopy, Fun: n.Op, Args: []ast.Node{n.Rhs}, NumPosArgs: 1}
		return &ast.Assign{L: n.L, Lhs: n.Lhs, Rhs: call}
	}
}

func (t *transformer) lowerAttrOpAssign(n *ast.OpAssign, lhs *ast.Send) ast.Node {
	tmp := t.d.freshLocal(n.L)
	assignTmp := &ast.Assign{L: n.L, Lhs: tmp, Rhs: lhs.Recv}
	read := &ast.Send{L: lhs.L, Recv: tmp, Fun: lhs.Fun}
	write := &ast.Send{L: lhs.L, Recv: ast.DeepCopy(tmp).(*ast.Local), Fun: lhs.Fun}
	call := &ast.Send{L: n.L, Recv: read, Fun: n.Op, Args: []ast.Node{n.Rhs}, NumPosArgs: 1}
	assignFinal := &ast.Assign{L: n.L, Lhs: write, Rhs: call}
	return &ast.InsSeq{L: n.L, Stats: []ast.Node{assignTmp}, Expr: assignFinal}
}

func (t *transformer) lowerIndexOpAssign(n *ast.OpAssign, lhs *ast.Send) ast.Node {
	tmpRecv := t.d.freshLocal(n.L)
	assignRecv := &ast.Assign{L: n.L, Lhs: tmpRecv, Rhs: lhs.Recv}

	var idxAssigns []ast.Node
	idxLocals := make([]ast.Node, len(lhs.Args))
	for i, idx := range lhs.Args {
		tmpIdx := t.d.freshLocal(n.L)
		idxAssigns = append(idxAssigns, &ast.Assign{L: n.L, Lhs: tmpIdx, Rhs: idx})
		idxLocals[i] = tmpIdx
	}

	read := &ast.Send{L: lhs.L, Recv: ast.DeepCopy(tmpRecv).(*ast.Local), Fun: lhs.Fun, Args: ast.DeepCopyVec(idxLocals), NumPosArgs: len(idxLocals)}
	write := &ast.Send{L: lhs.L, Recv: ast.DeepCopy(tmpRecv).(*ast.Local), Fun: lhs.Fun, Args: ast.DeepCopyVec(idxLocals), NumPosArgs: len(idxLocals)}
	call := &ast.Send{L: n.L, Recv: read, Fun: n.Op, Args: []ast.Node{n.Rhs}, NumPosArgs: 1}
	assignFinal := &ast.Assign{L: n.L, Lhs: write, Rhs: call}

	stats := append([]ast.Node{assignRecv}, idxAssigns...)
	return &ast.InsSeq{L: n.L, Stats: stats, Expr: assignFinal}
}

// TransformMultiAssign lowers `a, b, *c = Rhs` into a single evaluation of
// Rhs into a temporary, followed by one projecting Assign per target.
func (t *transformer) TransformMultiAssign(n *ast.MultiAssign) ast.Node {
	tmp := t.d.freshLocal(n.L)
	assignTmp := &ast.Assign{L: n.L, Lhs: tmp, Rhs: n.Rhs}

	idxName := t.d.names.InternUtf8("[]")
	stats := []ast.Node{assignTmp}
	for i, target := range n.Targets {
		if arg, ok := target.(*ast.Arg); ok && arg.Kind == core.ArgRest {
			from := &ast.Literal{Kind: core.LiteralInt, IntVal: int64(i)}
			sliceName := t.d.names.InternUtf8("from")
			proj := &ast.Send{L: n.L, Recv: ast.DeepCopy(tmp).(*ast.Local), Fun: sliceName, Args: []ast.Node{from}, NumPosArgs: 1}
			stats = append(stats, &ast.Assign{L: n.L, Lhs: &ast.Local{L: arg.L, Name: arg.Name}, Rhs: proj})
			continue
		}
		idx := &ast.Literal{Kind: core.LiteralInt, IntVal: int64(i)}
		proj := &ast.Send{L: n.L, Recv: ast.DeepCopy(tmp).(*ast.Local), Fun: idxName, Args: []ast.Node{idx}, NumPosArgs: 1}
		stats = append(stats, &ast.Assign{L: n.L, Lhs: target, Rhs: proj})
	}
	return &ast.InsSeq{L: n.L, Stats: stats, Expr: &ast.EmptyTree{L: n.L}}
}

// TransformStringInterp lowers a `"...#{e}..."`-shaped literal into a
// left-to-right chain of `+` sends over stringified parts.
func (t *transformer) TransformStringInterp(n *ast.StringInterp) ast.Node {
	if len(n.Parts) == 0 {
		return &ast.Literal{L: n.L, Kind: core.LiteralString}
	}
	toS := t.d.names.InternUtf8("to_s")
	plus := t.d.names.InternUtf8("+")

	stringify := func(p ast.Node) ast.Node {
		if lit, ok := p.(*ast.Literal); ok && lit.Kind == core.LiteralString {
			return lit
		}
		return &ast.Send{L: p.Loc(), Recv: p, Fun: toS}
	}

	acc := stringify(n.Parts[0])
	for _, p := range n.Parts[1:] {
		acc = &ast.Send{L: n.L, Recv: acc, Fun: plus, Args: []ast.Node{stringify(p)}, NumPosArgs: 1}
	}
	return acc
}
