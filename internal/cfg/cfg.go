// Package cfg lowers one method's canonical AST body into a basic-block
// control-flow graph: the shape Infer's forward dataflow walks. This is pure
// compiler-construction algorithm with no ecosystem-library surface in the
// corpus to ground it on, so -- matching spec.md 4.6 literally -- it stays on
// the standard library.
package cfg

import (
	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

// LocalRef is one SSA-ish binding target: a base local plus the version
// this particular assignment writes. Reads within a block address the most
// recent version seen; reads at a block's entry address whatever version
// was live on every predecessor, resolved implicitly by Infer's per-block
// state rather than an explicit phi node.
type LocalRef struct {
	Name    core.NameRef
	Unique  int // ast.Local.Unique; -1 (selfUnique) for the synthetic "self" pseudo-local, below -1 for temporaries
	Version int
}

// RvalueKind tags the variant carried by an Rvalue.
type RvalueKind uint8

const (
	RIdent RvalueKind = iota
	RAlias
	RSend
	RReturn
	RBlockReturn
	RLoadSelf
	RLiteral
	RLoadArg
	RLoadYieldParams
	RCast
	RUnanalyzable
	RSolveConstraint
	RTAbsurd
)

// Rvalue is the right-hand side of one Binding. Exactly one of the typed
// fields is meaningful, selected by Kind -- a closed tagged union rather
// than an interface, since CFG rvalues are a fixed, small, non-extensible
// set (unlike ast.Node, which grows with surface syntax).
type Rvalue struct {
	Kind RvalueKind

	Ident   LocalRef    // RIdent, RAlias (Alias.Of == Ident)
	Send    *SendRvalue // RSend
	Operand LocalRef    // RReturn, RBlockReturn, RCast operand
	Literal *ast.Literal // RLiteral
	ArgIdx  int          // RLoadArg
	CastTo  core.TypeRef // RCast
	CastKind ast.CastKind // RCast
	Reason  string       // RUnanalyzable, RSolveConstraint, RTAbsurd: what produced this
	Loc     core.Loc
}

// SendRvalue is a dispatched call: receiver, method name, positional and
// block-passed argument locals.
type SendRvalue struct {
	Recv  LocalRef
	Fun   core.NameRef
	Args  []LocalRef
	Block *LocalRef // nil if no block was passed
}

// Binding is one (local := rvalue) entry inside a BasicBlock.
type Binding struct {
	Target LocalRef
	Loc    core.Loc
	Rvalue Rvalue
}

// TerminatorKind tags how a BasicBlock hands control to its successors.
type TerminatorKind uint8

const (
	TermJump TerminatorKind = iota
	TermCondJump
	TermReturn
)

// Terminator ends a BasicBlock.
type Terminator struct {
	Kind      TerminatorKind
	Cond      LocalRef // TermCondJump: the boolean local tested
	Then      BlockID  // TermJump target, or TermCondJump true-target
	Else      BlockID  // TermCondJump false-target
	ReturnVal LocalRef // TermReturn
}

// BlockID indexes into Graph.Blocks. The zero value is never a valid block
// (entry is always index 1) so a zero BlockID reads as "no block" in
// terminators built before their target exists.
type BlockID int

// BasicBlock is a straight-line run of Bindings ending in one Terminator.
type BasicBlock struct {
	ID         BlockID
	Bindings   []Binding
	Terminator Terminator
	LoopDepth  int // minimum enclosing loop nesting of this block
}

// Graph is one method body's control-flow graph.
type Graph struct {
	Blocks []*BasicBlock // Blocks[0] is an unused sentinel; Entry indexes the real entry
	Entry  BlockID

	// RPO is a topological order over the *reverse* graph (successors before
	// predecessors in the forward graph become predecessors-before-successors
	// here), the order Infer's forward dataflow iterates in so every block's
	// predecessors are processed first whenever the graph is acyclic, and
	// loop headers are revisited to fixed point otherwise.
	RPO []BlockID
}

func (g *Graph) Block(id BlockID) *BasicBlock { return g.Blocks[id] }

func (g *Graph) newBlock() *BasicBlock {
	b := &BasicBlock{ID: BlockID(len(g.Blocks))}
	g.Blocks = append(g.Blocks, b)
	return b
}
