package ast

// Transformer rewrites a tree bottom-up: Walk recurses into every child
// first, rebuilds the node with the (possibly replaced) children, and only
// then calls the method matching the node's own kind. A transformer is free
// to return the same node unchanged -- the source's FUNC_EXAMPLE idiom
// (original_source/ast/TreeMap.h) documents this same contract ("you may
// return the same pointer that you are given, caller is responsible to
// handle it"). BaseTransformer supplies identity implementations for every
// method so a caller only overrides the node kinds it cares about.
type Transformer interface {
	TransformEmptyTree(*EmptyTree) Node
	TransformClassDef(*ClassDef) Node
	TransformMethodDef(*MethodDef) Node
	TransformIf(*If) Node
	TransformWhile(*While) Node
	TransformBreak(*Break) Node
	TransformNext(*Next) Node
	TransformReturn(*Return) Node
	TransformRescueCase(*RescueCase) Node
	TransformRescue(*Rescue) Node
	TransformAssign(*Assign) Node
	TransformSend(*Send) Node
	TransformHash(*Hash) Node
	TransformArray(*Array) Node
	TransformLiteral(*Literal) Node
	TransformUnresolvedConstant(*UnresolvedConstant) Node
	TransformResolvedConstant(*ResolvedConstant) Node
	TransformBlock(*Block) Node
	TransformInsSeq(*InsSeq) Node
	TransformLocal(*Local) Node
	TransformUnresolvedIdent(*UnresolvedIdent) Node
	TransformArg(*Arg) Node
	TransformCast(*Cast) Node
	TransformZSuperArgs(*ZSuperArgs) Node
	TransformRuntimeMethodDefinition(*RuntimeMethodDefinition) Node
	TransformForIn(*ForIn) Node
	TransformOpAssign(*OpAssign) Node
	TransformMultiAssign(*MultiAssign) Node
	TransformStringInterp(*StringInterp) Node
}

// BaseTransformer returns every node unchanged. Embed it and override only
// the methods a particular pass needs.
type BaseTransformer struct{}

func (BaseTransformer) TransformEmptyTree(n *EmptyTree) Node { return n }
func (BaseTransformer) TransformClassDef(n *ClassDef) Node   { return n }
func (BaseTransformer) TransformMethodDef(n *MethodDef) Node { return n }
func (BaseTransformer) TransformIf(n *If) Node               { return n }
func (BaseTransformer) TransformWhile(n *While) Node         { return n }
func (BaseTransformer) TransformBreak(n *Break) Node         { return n }
func (BaseTransformer) TransformNext(n *Next) Node           { return n }
func (BaseTransformer) TransformReturn(n *Return) Node       { return n }
func (BaseTransformer) TransformRescueCase(n *RescueCase) Node { return n }
func (BaseTransformer) TransformRescue(n *Rescue) Node       { return n }
func (BaseTransformer) TransformAssign(n *Assign) Node       { return n }
func (BaseTransformer) TransformSend(n *Send) Node           { return n }
func (BaseTransformer) TransformHash(n *Hash) Node           { return n }
func (BaseTransformer) TransformArray(n *Array) Node         { return n }
func (BaseTransformer) TransformLiteral(n *Literal) Node     { return n }
func (BaseTransformer) TransformUnresolvedConstant(n *UnresolvedConstant) Node { return n }
func (BaseTransformer) TransformResolvedConstant(n *ResolvedConstant) Node     { return n }
func (BaseTransformer) TransformBlock(n *Block) Node         { return n }
func (BaseTransformer) TransformInsSeq(n *InsSeq) Node       { return n }
func (BaseTransformer) TransformLocal(n *Local) Node         { return n }
func (BaseTransformer) TransformUnresolvedIdent(n *UnresolvedIdent) Node { return n }
func (BaseTransformer) TransformArg(n *Arg) Node             { return n }
func (BaseTransformer) TransformCast(n *Cast) Node           { return n }
func (BaseTransformer) TransformZSuperArgs(n *ZSuperArgs) Node { return n }
func (BaseTransformer) TransformRuntimeMethodDefinition(n *RuntimeMethodDefinition) Node {
	return n
}
func (BaseTransformer) TransformForIn(n *ForIn) Node             { return n }
func (BaseTransformer) TransformOpAssign(n *OpAssign) Node       { return n }
func (BaseTransformer) TransformMultiAssign(n *MultiAssign) Node { return n }
func (BaseTransformer) TransformStringInterp(n *StringInterp) Node { return n }

// Walk rewrites n and every descendant via t, children first.
func Walk(n Node, t Transformer) Node {
	if n == nil {
		return nil
	}

	switch orig := n.(type) {
	case *EmptyTree:
		return t.TransformEmptyTree(orig)
	case *ClassDef:
		c := &ClassDef{L: orig.L, DeclLoc: orig.DeclLoc, Kind: orig.Kind, Symbol: orig.Symbol}
		c.Name = Walk(orig.Name, t)
		c.Ancestors = walkVec(orig.Ancestors, t)
		c.Body = walkVec(orig.Body, t)
		return t.TransformClassDef(c)
	case *MethodDef:
		c := &MethodDef{L: orig.L, DeclLoc: orig.DeclLoc, Name: orig.Name, Flags: orig.Flags, Symbol: orig.Symbol}
		c.Args = walkVec(orig.Args, t)
		c.Body = Walk(orig.Body, t)
		return t.TransformMethodDef(c)
	case *If:
		c := &If{L: orig.L}
		c.Cond = Walk(orig.Cond, t)
		c.Then = Walk(orig.Then, t)
		c.Else = Walk(orig.Else, t)
		return t.TransformIf(c)
	case *While:
		c := &While{L: orig.L}
		c.Cond = Walk(orig.Cond, t)
		c.Body = Walk(orig.Body, t)
		return t.TransformWhile(c)
	case *Break:
		c := &Break{L: orig.L, Expr: Walk(orig.Expr, t)}
		return t.TransformBreak(c)
	case *Next:
		c := &Next{L: orig.L, Expr: Walk(orig.Expr, t)}
		return t.TransformNext(c)
	case *Return:
		c := &Return{L: orig.L, Expr: Walk(orig.Expr, t)}
		return t.TransformReturn(c)
	case *RescueCase:
		c := &RescueCase{L: orig.L}
		c.Exceptions = walkVec(orig.Exceptions, t)
		c.Var = Walk(orig.Var, t)
		c.Body = Walk(orig.Body, t)
		return t.TransformRescueCase(c)
	case *Rescue:
		c := &Rescue{L: orig.L}
		c.Body = Walk(orig.Body, t)
		c.Cases = walkVec(orig.Cases, t)
		c.Else = Walk(orig.Else, t)
		c.Ensure = Walk(orig.Ensure, t)
		return t.TransformRescue(c)
	case *Assign:
		c := &Assign{L: orig.L}
		c.Lhs = Walk(orig.Lhs, t)
		c.Rhs = Walk(orig.Rhs, t)
		return t.TransformAssign(c)
	case *Send:
		c := &Send{L: orig.L, Fun: orig.Fun, NumPosArgs: orig.NumPosArgs, Flags: orig.Flags}
		c.Recv = Walk(orig.Recv, t)
		c.Args = walkVec(orig.Args, t)
		c.Block = Walk(orig.Block, t)
		return t.TransformSend(c)
	case *Hash:
		entries := make([]HashEntry, len(orig.Entries))
		for i, e := range orig.Entries {
			entries[i] = HashEntry{Key: Walk(e.Key, t), Value: Walk(e.Value, t)}
		}
		c := &Hash{L: orig.L, Entries: entries}
		return t.TransformHash(c)
	case *Array:
		c := &Array{L: orig.L, Elems: walkVec(orig.Elems, t)}
		return t.TransformArray(c)
	case *Literal:
		c := *orig
		return t.TransformLiteral(&c)
	case *UnresolvedConstant:
		c := &UnresolvedConstant{L: orig.L, Name: orig.Name, Scope: Walk(orig.Scope, t)}
		return t.TransformUnresolvedConstant(c)
	case *ResolvedConstant:
		c := *orig
		return t.TransformResolvedConstant(&c)
	case *Block:
		c := &Block{L: orig.L}
		c.Args = walkVec(orig.Args, t)
		c.Body = Walk(orig.Body, t)
		return t.TransformBlock(c)
	case *InsSeq:
		c := &InsSeq{L: orig.L}
		c.Stats = walkVec(orig.Stats, t)
		c.Expr = Walk(orig.Expr, t)
		return t.TransformInsSeq(c)
	case *Local:
		c := *orig
		return t.TransformLocal(&c)
	case *UnresolvedIdent:
		c := *orig
		return t.TransformUnresolvedIdent(&c)
	case *Arg:
		c := &Arg{L: orig.L, Name: orig.Name, Kind: orig.Kind, Shadow: orig.Shadow, Unique: orig.Unique}
		c.Default = Walk(orig.Default, t)
		return t.TransformArg(c)
	case *Cast:
		c := &Cast{L: orig.L, Type: orig.Type, Kind: orig.Kind}
		c.Expr = Walk(orig.Expr, t)
		return t.TransformCast(c)
	case *ZSuperArgs:
		c := *orig
		return t.TransformZSuperArgs(&c)
	case *RuntimeMethodDefinition:
		c := *orig
		return t.TransformRuntimeMethodDefinition(&c)
	case *ForIn:
		c := &ForIn{L: orig.L}
		c.Var = Walk(orig.Var, t)
		c.Iter = Walk(orig.Iter, t)
		c.Body = Walk(orig.Body, t)
		return t.TransformForIn(c)
	case *OpAssign:
		c := &OpAssign{L: orig.L, Op: orig.Op}
		c.Lhs = Walk(orig.Lhs, t)
		c.Rhs = Walk(orig.Rhs, t)
		return t.TransformOpAssign(c)
	case *MultiAssign:
		c := &MultiAssign{L: orig.L}
		c.Targets = walkVec(orig.Targets, t)
		c.Rhs = Walk(orig.Rhs, t)
		return t.TransformMultiAssign(c)
	case *StringInterp:
		c := &StringInterp{L: orig.L, Parts: walkVec(orig.Parts, t)}
		return t.TransformStringInterp(c)
	default:
		panic("ast: Walk: unhandled node type")
	}
}

func walkVec(nodes []Node, t Transformer) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Walk(n, t)
	}
	return out
}

// Visitor observes a tree without rewriting it; Visit calls fn on n and
// every descendant, pre-order.
type Visitor func(n Node)

// Visit walks n pre-order, calling fn on every node including n itself.
func Visit(n Node, fn Visitor) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *ClassDef:
		Visit(t.Name, fn)
		visitVec(t.Ancestors, fn)
		visitVec(t.Body, fn)
	case *MethodDef:
		visitVec(t.Args, fn)
		Visit(t.Body, fn)
	case *If:
		Visit(t.Cond, fn)
		Visit(t.Then, fn)
		Visit(t.Else, fn)
	case *While:
		Visit(t.Cond, fn)
		Visit(t.Body, fn)
	case *Break:
		Visit(t.Expr, fn)
	case *Next:
		Visit(t.Expr, fn)
	case *Return:
		Visit(t.Expr, fn)
	case *RescueCase:
		visitVec(t.Exceptions, fn)
		Visit(t.Var, fn)
		Visit(t.Body, fn)
	case *Rescue:
		Visit(t.Body, fn)
		visitVec(t.Cases, fn)
		Visit(t.Else, fn)
		Visit(t.Ensure, fn)
	case *Assign:
		Visit(t.Lhs, fn)
		Visit(t.Rhs, fn)
	case *Send:
		Visit(t.Recv, fn)
		visitVec(t.Args, fn)
		Visit(t.Block, fn)
	case *Hash:
		for _, e := range t.Entries {
			Visit(e.Key, fn)
			Visit(e.Value, fn)
		}
	case *Array:
		visitVec(t.Elems, fn)
	case *UnresolvedConstant:
		Visit(t.Scope, fn)
	case *Block:
		visitVec(t.Args, fn)
		Visit(t.Body, fn)
	case *InsSeq:
		visitVec(t.Stats, fn)
		Visit(t.Expr, fn)
	case *Arg:
		Visit(t.Default, fn)
	case *Cast:
		Visit(t.Expr, fn)
	case *ForIn:
		Visit(t.Var, fn)
		Visit(t.Iter, fn)
		Visit(t.Body, fn)
	case *OpAssign:
		Visit(t.Lhs, fn)
		Visit(t.Rhs, fn)
	case *MultiAssign:
		visitVec(t.Targets, fn)
		Visit(t.Rhs, fn)
	case *StringInterp:
		visitVec(t.Parts, fn)
	}
}

func visitVec(nodes []Node, fn Visitor) {
	for _, n := range nodes {
		Visit(n, fn)
	}
}
