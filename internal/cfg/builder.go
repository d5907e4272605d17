package cfg

import (
	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

// selfUnique is the reserved Unique id for the pseudo-local holding `self`,
// never minted by LocalVars (whose ids start at 1) so it never collides with
// a real local.
const selfUnique = -1

// Build lowers one method body into its control-flow graph. file identifies
// the Locs recorded on every Binding and Terminator.
func Build(file core.FileRef, method *ast.MethodDef) *Graph {
	g := &Graph{}
	g.newBlock() // index 0: unused sentinel, keeps BlockID's zero value invalid
	entry := g.newBlock()
	g.Entry = entry.ID

	b := &builder{g: g, file: file, cur: entry, versions: map[int]int{}, tempCounter: selfUnique}
	b.bind(LocalRef{Unique: selfUnique}, Rvalue{Kind: RLoadSelf}, core.NoLoc)
	for i, a := range method.Args {
		arg, ok := a.(*ast.Arg)
		if !ok {
			continue
		}
		b.bind(b.localFor(arg.Unique, arg.Name), Rvalue{Kind: RLoadArg, ArgIdx: i}, core.NoLoc)
	}

	last := b.lower(method.Body)
	if b.cur.Terminator == (Terminator{}) {
		b.cur.Terminator = Terminator{Kind: TermReturn, ReturnVal: last}
	}

	g.RPO = reversePostorder(g)
	computeLoopDepths(g)
	return g
}

type builder struct {
	g           *Graph
	file        core.FileRef
	cur         *BasicBlock
	versions    map[int]int
	tempCounter int
	// loopHeaders/loopExits support Break/Next lowering to jumps.
	loopHeaders []BlockID
	loopExits   []BlockID
}

func (b *builder) loc(n ast.Node) core.Loc {
	if n == nil {
		return core.NoLoc
	}
	return core.Loc{File: b.file, Offsets: n.Loc()}
}

// localFor returns the LocalRef for unique at its current version.
func (b *builder) localFor(unique int, name core.NameRef) LocalRef {
	return LocalRef{Name: name, Unique: unique, Version: b.versions[unique]}
}

// bind appends a binding to target, bumping that local's version so the
// next read of it addresses this write rather than an earlier one.
func (b *builder) bind(target LocalRef, rv Rvalue, loc core.Loc) LocalRef {
	b.versions[target.Unique]++
	target.Version = b.versions[target.Unique]
	rv.Loc = loc
	b.cur.Bindings = append(b.cur.Bindings, Binding{Target: target, Loc: loc, Rvalue: rv})
	return target
}

// fresh allocates a synthetic temporary for a subexpression result.
// Temporaries get strictly negative uniques below selfUnique so they never
// collide with a real local or with self.
func (b *builder) fresh(rv Rvalue, loc core.Loc) LocalRef {
	b.tempCounter--
	return b.bind(LocalRef{Unique: b.tempCounter}, rv, loc)
}

func (b *builder) unset() bool { return b.cur.Terminator == (Terminator{}) }

// lower walks n, emitting Bindings into the current block, and returns the
// LocalRef holding n's value (for use as an operand by the caller).
func (b *builder) lower(n ast.Node) LocalRef {
	switch t := n.(type) {
	case nil, *ast.EmptyTree:
		return b.fresh(Rvalue{Kind: RLiteral, Literal: &ast.Literal{IsNil: true}}, core.NoLoc)

	case *ast.InsSeq:
		for _, s := range t.Stats {
			b.lower(s)
		}
		return b.lower(t.Expr)

	case *ast.Local:
		return b.localFor(t.Unique, t.Name)

	case *ast.Literal:
		return b.fresh(Rvalue{Kind: RLiteral, Literal: t}, b.loc(n))

	case *ast.Assign:
		rhs := b.lower(t.Rhs)
		if local, ok := t.Lhs.(*ast.Local); ok {
			return b.bind(LocalRef{Name: local.Name, Unique: local.Unique}, Rvalue{Kind: RAlias, Ident: rhs}, b.loc(n))
		}
		// Non-local target (e.g. a still-unresolved identifier): best-effort,
		// evaluate the right-hand side and move on.
		return rhs

	case *ast.Send:
		recv := b.lower(t.Recv)
		args := make([]LocalRef, len(t.Args))
		for i, a := range t.Args {
			args[i] = b.lower(a)
		}
		var blk *LocalRef
		if t.Block != nil {
			if _, isEmpty := t.Block.(*ast.EmptyTree); !isEmpty {
				v := b.lowerBlockLiteral(t.Block)
				blk = &v
			}
		}
		return b.fresh(Rvalue{Kind: RSend, Send: &SendRvalue{Recv: recv, Fun: t.Fun, Args: args, Block: blk}}, b.loc(n))

	case *ast.Return:
		v := b.lower(t.Expr)
		r := b.fresh(Rvalue{Kind: RReturn, Operand: v}, b.loc(n))
		b.cur.Terminator = Terminator{Kind: TermReturn, ReturnVal: r}
		b.cur = b.g.newBlock() // unreachable tail, kept so later statements still lower cleanly
		return r

	case *ast.Cast:
		v := b.lower(t.Expr)
		return b.fresh(Rvalue{Kind: RCast, Operand: v, CastTo: t.Type, CastKind: t.Kind}, b.loc(n))

	case *ast.If:
		cond := b.lower(t.Cond)
		thenBlock := b.g.newBlock()
		elseBlock := b.g.newBlock()
		join := b.g.newBlock()
		b.cur.Terminator = Terminator{Kind: TermCondJump, Cond: cond, Then: thenBlock.ID, Else: elseBlock.ID}

		b.cur = thenBlock
		b.lower(t.Then)
		if b.unset() {
			b.cur.Terminator = Terminator{Kind: TermJump, Then: join.ID}
		}

		b.cur = elseBlock
		b.lower(t.Else)
		if b.unset() {
			b.cur.Terminator = Terminator{Kind: TermJump, Then: join.ID}
		}

		b.cur = join
		return b.fresh(Rvalue{Kind: RUnanalyzable, Reason: "if-expression join"}, b.loc(n))

	case *ast.While:
		header := b.g.newBlock()
		body := b.g.newBlock()
		exit := b.g.newBlock()
		b.cur.Terminator = Terminator{Kind: TermJump, Then: header.ID}

		b.cur = header
		cond := b.lower(t.Cond)
		header.Terminator = Terminator{Kind: TermCondJump, Cond: cond, Then: body.ID, Else: exit.ID}

		b.loopHeaders = append(b.loopHeaders, header.ID)
		b.loopExits = append(b.loopExits, exit.ID)
		b.cur = body
		b.lower(t.Body)
		if b.unset() {
			b.cur.Terminator = Terminator{Kind: TermJump, Then: header.ID}
		}
		b.loopHeaders = b.loopHeaders[:len(b.loopHeaders)-1]
		b.loopExits = b.loopExits[:len(b.loopExits)-1]

		b.cur = exit
		return b.fresh(Rvalue{Kind: RLiteral, Literal: &ast.Literal{IsNil: true}}, b.loc(n))

	case *ast.Break:
		v := b.lower(t.Expr)
		if len(b.loopExits) > 0 {
			b.cur.Terminator = Terminator{Kind: TermJump, Then: b.loopExits[len(b.loopExits)-1]}
		}
		b.cur = b.g.newBlock()
		return v

	case *ast.Next:
		v := b.lower(t.Expr)
		if len(b.loopHeaders) > 0 {
			b.cur.Terminator = Terminator{Kind: TermJump, Then: b.loopHeaders[len(b.loopHeaders)-1]}
		}
		b.cur = b.g.newBlock()
		return v

	case *ast.Hash, *ast.Array:
		return b.fresh(Rvalue{Kind: RUnanalyzable, Reason: "literal aggregate"}, b.loc(n))

	case *ast.ResolvedConstant, *ast.UnresolvedConstant:
		return b.fresh(Rvalue{Kind: RUnanalyzable, Reason: "constant reference"}, b.loc(n))

	case *ast.UnresolvedIdent:
		return b.fresh(Rvalue{Kind: RUnanalyzable, Reason: "unresolved identifier, treated as implicit self-send"}, b.loc(n))

	case *ast.Rescue:
		// Exception handling doesn't get flow-sensitive narrowing in this
		// pass; body and handlers still get lowered so their sends and
		// diagnostics fire, but as an opaque join rather than extra edges.
		b.lower(t.Body)
		for _, c := range t.Cases {
			if rc, ok := c.(*ast.RescueCase); ok {
				b.lower(rc.Body)
			}
		}
		b.lower(t.Ensure)
		return b.fresh(Rvalue{Kind: RUnanalyzable, Reason: "rescue result"}, b.loc(n))

	default:
		return b.fresh(Rvalue{Kind: RUnanalyzable, Reason: "unsupported node in CFG lowering"}, b.loc(n))
	}
}

// lowerBlockLiteral captures a Send's attached block as a BlockReturn
// pseudo-value: CFG does not inline block bodies into the caller's graph
// (each Block gets analyzed by Infer against the call site's expected
// signature instead), matching the "blocks dispatch via the enclosing Send"
// framing of the invariant.
func (b *builder) lowerBlockLiteral(n ast.Node) LocalRef {
	return b.fresh(Rvalue{Kind: RBlockReturn, Reason: "block literal"}, b.loc(n))
}
