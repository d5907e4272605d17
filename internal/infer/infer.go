// Package infer runs the flow-sensitive forward dataflow described in
// spec.md 4.7 over one method's cfg.Graph, producing a type environment at
// each block boundary and emitting diagnostics along the way.
package infer

import (
	"strconv"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/cfg"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/diagnostics"
)

// maxFixedPointIterations bounds the whole-graph iteration, the
// non-termination guard spec.md 4.7 calls for independent of minLoops
// widening.
const maxFixedPointIterations = 50

// widenAfterVisits is the per-block revisit count (minLoops depth
// surrogate) after which a loop header's locals widen to Untyped rather
// than keep accumulating union members across iterations.
const widenAfterVisits = 3

// Tri is a three-valued truthiness: known true, known false, or unknown
// (joined from a branch where the two sides disagree).
type Tri uint8

const (
	TriUnknown Tri = iota
	TriTrue
	TriFalse
)

func joinTri(a, b Tri) Tri {
	if a == b {
		return a
	}
	return TriUnknown
}

// State is the type environment live at one program point: each local's
// inferred type plus its known truthiness, keyed by base local identity
// (LocalRef.Unique), not by SSA version -- later writes simply replace the
// entry for their Unique.
type State struct {
	Types   map[int]core.Type
	Truthy  map[int]Tri
}

func newState() State {
	return State{Types: map[int]core.Type{}, Truthy: map[int]Tri{}}
}

func (s State) clone() State {
	out := newState()
	for k, v := range s.Types {
		out.Types[k] = v
	}
	for k, v := range s.Truthy {
		out.Truthy[k] = v
	}
	return out
}

func (s State) typeOf(l cfg.LocalRef) core.Type {
	if t, ok := s.Types[l.Unique]; ok {
		return t
	}
	return core.Untyped
}

func join(a, b State) State {
	out := newState()
	for k, ta := range a.Types {
		if tb, ok := b.Types[k]; ok {
			out.Types[k] = core.NewUnion(ta, tb)
		} else {
			out.Types[k] = ta
		}
	}
	for k, tb := range b.Types {
		if _, ok := out.Types[k]; !ok {
			out.Types[k] = tb
		}
	}
	for k, va := range a.Truthy {
		if vb, ok := b.Truthy[k]; ok {
			out.Truthy[k] = joinTri(va, vb)
		} else {
			out.Truthy[k] = TriUnknown
		}
	}
	for k := range b.Truthy {
		if _, ok := out.Truthy[k]; !ok {
			out.Truthy[k] = TriUnknown
		}
	}
	return out
}

func stateEqual(a, b State) bool {
	if len(a.Types) != len(b.Types) || len(a.Truthy) != len(b.Truthy) {
		return false
	}
	for k, v := range a.Types {
		bv, ok := b.Types[k]
		if !ok || !core.TypesStructurallyEqual(v, bv) {
			return false
		}
	}
	for k, v := range a.Truthy {
		if b.Truthy[k] != v {
			return false
		}
	}
	return true
}

func widen(s State) State {
	out := newState()
	for k := range s.Types {
		out.Types[k] = core.Untyped
	}
	for k := range s.Truthy {
		out.Truthy[k] = TriUnknown
	}
	return out
}

// Result is the per-block environments produced by one Run, addressable by
// cfg.BlockID for hover/query use by the editor front end.
type Result struct {
	In  []State
	Out []State
}

// Infer runs dataflow passes against a shared GlobalState's symbol table
// (read-only: Infer never mutates symbols, only emits diagnostics).
type Infer struct {
	gs *core.GlobalState
}

func New(gs *core.GlobalState) *Infer {
	return &Infer{gs: gs}
}

// Run analyzes one method's graph, g, built by cfg.Build from owner's
// MethodDef. method is the Namer-entered symbol carrying declared
// argument/result types (Untyped wherever no annotation was parsed).
func (inf *Infer) Run(file core.FileRef, method *core.Method, g *cfg.Graph) *Result {
	n := len(g.Blocks)
	in := make([]State, n)
	out := make([]State, n)
	for i := range in {
		in[i] = newState()
		out[i] = newState()
	}
	in[g.Entry] = newState()

	preds := predecessors(g)
	visits := make([]int, n)

	for pass := 0; pass < maxFixedPointIterations; pass++ {
		changed := false
		for _, id := range g.RPO {
			blk := g.Block(id)
			merged := mergeIncoming(g, id, preds, out, in[id])
			if blk.LoopDepth > 0 {
				visits[id]++
				if visits[id] > widenAfterVisits {
					merged = widen(merged)
				}
			}
			if !stateEqual(merged, in[id]) {
				in[id] = merged
				changed = true
			}
			newOut := inf.transferBlock(method, blk, in[id])
			if !stateEqual(newOut, out[id]) {
				out[id] = newOut
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Diagnostics are only emitted once the environment has stabilized:
	// transferBlock above runs many times per block while the fixed point
	// converges, and reporting from it directly would push one diagnostic
	// per revisit instead of one per real defect.
	for _, id := range g.RPO {
		inf.reportBlock(file, method, g.Block(id), in[id])
	}
	inf.reportDeadCode(file, g)
	return &Result{In: in, Out: out}
}

func predecessors(g *cfg.Graph) map[cfg.BlockID][]cfg.BlockID {
	preds := make(map[cfg.BlockID][]cfg.BlockID)
	for _, blk := range g.Blocks {
		for _, succ := range cfg.Successors(blk.Terminator) {
			if succ != 0 {
				preds[succ] = append(preds[succ], blk.ID)
			}
		}
	}
	return preds
}

// mergeIncoming joins every predecessor's Out state into id's In state,
// narrowing each predecessor's contribution to the edge it arrives on
// first -- a block with two predecessor branches of the same `if` must not
// let one edge's narrowing leak into the other before the join.
func mergeIncoming(g *cfg.Graph, id cfg.BlockID, preds map[cfg.BlockID][]cfg.BlockID, out []State, fallback State) State {
	ps := preds[id]
	if len(ps) == 0 {
		return fallback
	}
	merged := narrowedOut(g.Block(ps[0]), id, out[ps[0]])
	for _, p := range ps[1:] {
		merged = join(merged, narrowedOut(g.Block(p), id, out[p]))
	}
	return merged
}

// narrowedOut applies conditional-jump narrowing to pred's Out state for the
// specific edge leading into succ, per spec.md 4.7 ("conditional jumps
// refine types on their successors"). Only the tested local's truthiness is
// pinned here: full class-level narrowing (e.g. `x.is_a?(C)` also pinning
// x's static type to C) would need the CFG to retain the compared class
// symbol on the Send node, which constant arguments don't carry -- they
// lower to Unanalyzable bindings (internal/cfg/builder.go) -- so truthiness
// is as far as this CFG shape lets narrowing go.
func narrowedOut(pred *cfg.BasicBlock, succ cfg.BlockID, st State) State {
	term := pred.Terminator
	if term.Kind != cfg.TermCondJump {
		return st
	}
	narrowed := st.clone()
	switch succ {
	case term.Then:
		narrowed.Truthy[term.Cond.Unique] = TriTrue
	case term.Else:
		narrowed.Truthy[term.Cond.Unique] = TriFalse
	}
	return narrowed
}

func (inf *Infer) transferBlock(method *core.Method, blk *cfg.BasicBlock, in State) State {
	st := in.clone()
	for _, binding := range blk.Bindings {
		inf.transferBinding(method, st, binding)
	}
	// Terminators never rewrite the block's own Out state: a TermCondJump's
	// narrowing is specific to which successor edge is being taken, and one
	// State per block has no room for two different narrowed views. See
	// narrowedOut, applied where that edge is actually resolved (merge time).
	return st
}

func (inf *Infer) transferBinding(method *core.Method, st State, b cfg.Binding) {
	switch b.Rvalue.Kind {
	case cfg.RLoadSelf:
		st.Types[b.Target.Unique] = core.SelfType{}
	case cfg.RLoadArg:
		// Seeded from the method's declared argument type where Namer
		// recorded one; Untyped (gradual typing's open-world default)
		// whenever this front end parsed no annotation for it.
		st.Types[b.Target.Unique] = declaredArgType(method, b.Rvalue.ArgIdx)
	case cfg.RLiteral:
		st.Types[b.Target.Unique] = literalType(b.Rvalue.Literal)
	case cfg.RIdent, cfg.RAlias:
		st.Types[b.Target.Unique] = st.typeOf(b.Rvalue.Ident)
		st.Truthy[b.Target.Unique] = st.Truthy[b.Rvalue.Ident.Unique]
	case cfg.RCast:
		declared := b.Rvalue.CastTo
		if declared == nil {
			declared = core.Untyped
		}
		st.Types[b.Target.Unique] = declared
	case cfg.RSend:
		st.Types[b.Target.Unique] = inf.dispatchQuiet(st.typeOf(b.Rvalue.Send.Recv), b.Rvalue.Send.Fun)
	case cfg.RReturn, cfg.RBlockReturn:
		st.Types[b.Target.Unique] = st.typeOf(b.Rvalue.Operand)
	case cfg.RUnanalyzable, cfg.RSolveConstraint, cfg.RTAbsurd, cfg.RLoadYieldParams:
		st.Types[b.Target.Unique] = core.Untyped
	}
}

// reportBlock re-walks one block's bindings against its already-converged
// entry state, this time emitting diagnostics; it never writes to st since
// the environment is final by the time this runs.
func (inf *Infer) reportBlock(file core.FileRef, method *core.Method, blk *cfg.BasicBlock, in State) {
	st := in.clone()
	for _, b := range blk.Bindings {
		switch b.Rvalue.Kind {
		case cfg.RCast:
			if b.Rvalue.CastKind == ast.CastLet {
				operandType := st.typeOf(b.Rvalue.Operand)
				declared := b.Rvalue.CastTo
				if declared == nil {
					declared = core.Untyped
				}
				if operandType != core.Untyped && !conforms(operandType, declared) {
					inf.gs.Errors.Push(diagnostics.New(diagnostics.CodeTypeMismatch,
						core.Loc{File: file, Offsets: b.Rvalue.Loc.Offsets},
						"value does not conform to its declared type"))
				}
			}
		case cfg.RSend:
			recvType := st.typeOf(b.Rvalue.Send.Recv)
			loc := core.Loc{File: file, Offsets: b.Rvalue.Loc.Offsets}
			inf.reportDispatch(loc, recvType, b.Rvalue.Send.Fun)
			inf.reportArgs(loc, recvType, b.Rvalue.Send, st)
		case cfg.RReturn:
			inf.reportReturn(file, method, b, st)
		}
		inf.transferBinding(method, st, b)
	}
}

// reportDispatch mirrors dispatchQuiet's resolution walk but emits the
// unresolved-method diagnostic instead of silently returning Untyped.
func (inf *Infer) reportDispatch(loc core.Loc, recvType core.Type, fun core.NameRef) {
	switch t := recvType.(type) {
	case core.UnionType:
		for _, member := range t.Members {
			inf.reportDispatch(loc, member, fun)
		}
	case core.ClassType:
		if _, ok := inf.lookupMethod(t.Sym, fun); !ok {
			inf.gs.Errors.Push(diagnostics.New(diagnostics.CodeUnresolvedMethod, loc,
				"method "+inf.gs.Names.ShowRaw(fun)+" does not exist on "+inf.gs.Names.ShowRaw(inf.classSymbolName(t.Sym))))
		}
	}
}

// reportArgs mirrors reportDispatch's receiver walk, checking the call
// site's argument locals against the resolved method's declared signature
// once per union member. A receiver reportDispatch already flagged as
// missing the method is silently skipped here -- nothing to check an
// argument list against.
func (inf *Infer) reportArgs(loc core.Loc, recvType core.Type, send *cfg.SendRvalue, st State) {
	switch t := recvType.(type) {
	case core.UnionType:
		for _, member := range t.Members {
			inf.reportArgs(loc, member, send, st)
		}
	case core.ClassType:
		if method, ok := inf.lookupMethod(t.Sym, send.Fun); ok {
			inf.checkArgConformance(loc, method, send, st)
		}
	}
}

// checkArgConformance checks send's argument locals against method's
// declared Arguments: positional/optional parameters get both an arity and
// a per-position type check; a Rest parameter absorbs any extra positional
// arguments, so its presence suppresses the arity check entirely; Keyword,
// KeywordOptional, Block, and Shadow parameters aren't positionally
// addressable from send.Args, so they're excluded from both checks rather
// than mismatched against the wrong position.
func (inf *Infer) checkArgConformance(loc core.Loc, method *core.Method, send *cfg.SendRvalue, st State) {
	var positional []core.Argument
	hasRest := false
	required := 0
	for _, a := range method.Arguments {
		switch a.Kind {
		case core.ArgPositional:
			positional = append(positional, a)
			required++
		case core.ArgOptional:
			positional = append(positional, a)
		case core.ArgRest:
			hasRest = true
		}
	}

	if !hasRest && (len(send.Args) < required || len(send.Args) > len(positional)) {
		inf.gs.Errors.Push(diagnostics.New(diagnostics.CodeArgCountMismatch, loc,
			inf.gs.Names.ShowRaw(method.Name)+" expects "+strconv.Itoa(required)+" argument(s), got "+strconv.Itoa(len(send.Args))))
		return
	}

	for i, arg := range send.Args {
		if i >= len(positional) {
			break // rest-absorbed; no declared type to check against
		}
		want := positional[i].Type
		if want == nil || want == core.Untyped {
			continue
		}
		got := st.typeOf(arg)
		if got == core.Untyped {
			continue
		}
		if !conforms(got, want) {
			inf.gs.Errors.Push(diagnostics.New(diagnostics.CodeArgTypeMismatch, loc,
				inf.gs.Names.ShowRaw(method.Name)+" expects "+want.Show(inf.gs.Names)+", got "+got.Show(inf.gs.Names)))
		}
	}
}

// reportReturn checks a `return` binding's operand against the enclosing
// method's declared Result, per spec.md 4.7's "return type mismatch"
// diagnostic. owner is nil when Infer is run without a Namer-entered
// method (not a real configuration in this pipeline, but guarded the same
// way declaredArgType guards a nil method).
func (inf *Infer) reportReturn(file core.FileRef, owner *core.Method, b cfg.Binding, st State) {
	if owner == nil || owner.Result == nil || owner.Result == core.Untyped {
		return
	}
	got := st.typeOf(b.Rvalue.Operand)
	if got == core.Untyped || conforms(got, owner.Result) {
		return
	}
	inf.gs.Errors.Push(diagnostics.New(diagnostics.CodeReturnTypeMismatch,
		core.Loc{File: file, Offsets: b.Rvalue.Loc.Offsets},
		"returned value "+got.Show(inf.gs.Names)+" does not conform to the method's declared return type "+owner.Result.Show(inf.gs.Names)))
}

func declaredArgType(method *core.Method, argIdx int) core.Type {
	if method == nil || argIdx < 0 || argIdx >= len(method.Arguments) {
		return core.Untyped
	}
	declared := method.Arguments[argIdx].Type
	if declared == nil {
		return core.Untyped
	}
	return declared
}

// literalType builds a LiteralType with Underlying left zero: resolving a
// literal kind to its builtin class symbol (Integer, String, ...) needs a
// well-known-symbols table that nothing in this front end populates yet, so
// Show() on these renders the literal's value without its widened class
// name until that table exists.
func literalType(lit *ast.Literal) core.Type {
	if lit == nil {
		return core.Untyped
	}
	if lit.IsNil {
		return core.Untyped
	}
	return core.LiteralType{Kind: lit.Kind, IntVal: lit.IntVal, FloatVal: lit.FloatVal, BoolVal: lit.BoolVal, StrVal: lit.StrVal}
}

// conforms is a conservative subtype check: equal types trivially conform,
// and a union conforms to a target if every member does.
func conforms(have, want core.Type) bool {
	if core.TypesStructurallyEqual(have, want) {
		return true
	}
	if u, ok := have.(core.UnionType); ok {
		for _, m := range u.Members {
			if !conforms(m, want) {
				return false
			}
		}
		return true
	}
	return want == core.Untyped || want == core.Top
}

// dispatchQuiet resolves fun on recv's static type with no diagnostic side
// effects (those are reserved for reportDispatch, once per converged
// environment). A union receiver dispatches componentwise and joins the
// member results, matching the "union receiver dispatches componentwise"
// decision.
func (inf *Infer) dispatchQuiet(recvType core.Type, fun core.NameRef) core.Type {
	switch t := recvType.(type) {
	case core.UnionType:
		var results []core.Type
		for _, member := range t.Members {
			results = append(results, inf.dispatchQuiet(member, fun))
		}
		return core.NewUnion(results...)
	case core.ClassType:
		if method, ok := inf.lookupMethod(t.Sym, fun); ok && method.Result != nil {
			return method.Result
		}
		return core.Untyped
	default:
		// Untyped, SelfType, literal, and every other shape: open-world,
		// no diagnostic. SelfType resolution to a concrete receiver class
		// is a scheduler/typechecker-level concern (the enclosing method's
		// owner), out of scope for this block-local transfer.
		return core.Untyped
	}
}

func (inf *Infer) classSymbolName(ref core.SymbolRef) core.NameRef {
	return inf.gs.Symbols.Class(ref).Name
}

// lookupMethod walks owner's direct Members, then its Superclass chain,
// then its Mixins' direct Members (not recursing into a mixin's own
// ancestors -- Resolver already flattens the immediate ancestor list per
// spec.md 4.5, so one level of mixin lookup plus superclass recursion
// covers what Namer/Resolver populated).
func (inf *Infer) lookupMethod(owner core.SymbolRef, fun core.NameRef) (*core.Method, bool) {
	for cur := owner; !cur.IsZero(); {
		class := inf.gs.Symbols.Class(cur)
		if ref, ok := class.Members[fun]; ok && ref.Kind == core.SymMethod {
			return inf.gs.Symbols.Method(ref), true
		}
		for _, mixin := range class.Mixins {
			mixinClass := inf.gs.Symbols.Class(mixin)
			if ref, ok := mixinClass.Members[fun]; ok && ref.Kind == core.SymMethod {
				return inf.gs.Symbols.Method(ref), true
			}
		}
		cur = class.Superclass
	}
	return nil, false
}

// reportDeadCode flags any block with bindings that the reverse-postorder
// walk never reached: cfg.Build only creates such a block as the
// unreachable tail after a Return/Break/Next, so a non-empty one means the
// source had statements after an unconditional exit.
func (inf *Infer) reportDeadCode(file core.FileRef, g *cfg.Graph) {
	reachable := make(map[cfg.BlockID]bool, len(g.RPO))
	for _, id := range g.RPO {
		reachable[id] = true
	}
	for _, blk := range g.Blocks[1:] {
		if reachable[blk.ID] || len(blk.Bindings) == 0 {
			continue
		}
		loc := core.Loc{File: file, Offsets: blk.Bindings[0].Loc.Offsets}
		inf.gs.Errors.Push(diagnostics.New(diagnostics.CodeDeadBranch, loc, "unreachable code"))
	}
}
