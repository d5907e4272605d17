package ast

// StructurallyEqual reports whether a and b have the same shape, ignoring
// source locations entirely. It mirrors original_source/ast/TreeEquality.cc:
// Send compares the callee name, flags, positional-arg count, receiver, and
// then the raw argument vector positionally -- keyword-argument order is
// part of the comparison, not normalized away (see SPEC_FULL.md's decision
// on Open Question 1).
func StructurallyEqual(a, b Node) bool {
	return structurallyEqual(a, b)
}

func structurallyEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}

	switch at := a.(type) {
	case *EmptyTree:
		return true
	case *ClassDef:
		bt := b.(*ClassDef)
		return at.Kind == bt.Kind &&
			structurallyEqual(at.Name, bt.Name) &&
			structurallyEqualVec(at.Ancestors, bt.Ancestors) &&
			structurallyEqualVec(at.Body, bt.Body)
	case *MethodDef:
		bt := b.(*MethodDef)
		return at.Name == bt.Name && at.Flags == bt.Flags &&
			structurallyEqualVec(at.Args, bt.Args) &&
			structurallyEqual(at.Body, bt.Body)
	case *If:
		bt := b.(*If)
		return structurallyEqual(at.Cond, bt.Cond) &&
			structurallyEqual(at.Then, bt.Then) &&
			structurallyEqual(at.Else, bt.Else)
	case *While:
		bt := b.(*While)
		return structurallyEqual(at.Cond, bt.Cond) && structurallyEqual(at.Body, bt.Body)
	case *Break:
		bt := b.(*Break)
		return structurallyEqual(at.Expr, bt.Expr)
	case *Next:
		bt := b.(*Next)
		return structurallyEqual(at.Expr, bt.Expr)
	case *Return:
		bt := b.(*Return)
		return structurallyEqual(at.Expr, bt.Expr)
	case *RescueCase:
		bt := b.(*RescueCase)
		return structurallyEqualVec(at.Exceptions, bt.Exceptions) &&
			structurallyEqual(at.Var, bt.Var) &&
			structurallyEqual(at.Body, bt.Body)
	case *Rescue:
		bt := b.(*Rescue)
		return structurallyEqual(at.Body, bt.Body) &&
			structurallyEqualVec(at.Cases, bt.Cases) &&
			structurallyEqual(at.Else, bt.Else) &&
			structurallyEqual(at.Ensure, bt.Ensure)
	case *Assign:
		bt := b.(*Assign)
		return structurallyEqual(at.Lhs, bt.Lhs) && structurallyEqual(at.Rhs, bt.Rhs)
	case *Send:
		bt := b.(*Send)
		if at.Fun != bt.Fun || at.Flags != bt.Flags || at.NumPosArgs != bt.NumPosArgs {
			return false
		}
		if !structurallyEqual(at.Recv, bt.Recv) {
			return false
		}
		if !structurallyEqual(at.Block, bt.Block) {
			return false
		}
		// Raw argument vector compared positionally: keyword-arg order
		// matters, matching the source comparator.
		return structurallyEqualVec(at.Args, bt.Args)
	case *Hash:
		bt := b.(*Hash)
		if len(at.Entries) != len(bt.Entries) {
			return false
		}
		for i := range at.Entries {
			if !structurallyEqual(at.Entries[i].Key, bt.Entries[i].Key) ||
				!structurallyEqual(at.Entries[i].Value, bt.Entries[i].Value) {
				return false
			}
		}
		return true
	case *Array:
		bt := b.(*Array)
		return structurallyEqualVec(at.Elems, bt.Elems)
	case *Literal:
		bt := b.(*Literal)
		return at.Kind == bt.Kind && at.IntVal == bt.IntVal && at.FloatVal == bt.FloatVal &&
			at.BoolVal == bt.BoolVal && at.StrVal == bt.StrVal && at.IsNil == bt.IsNil
	case *UnresolvedConstant:
		bt := b.(*UnresolvedConstant)
		return at.Name == bt.Name && structurallyEqual(at.Scope, bt.Scope)
	case *ResolvedConstant:
		bt := b.(*ResolvedConstant)
		return at.Symbol == bt.Symbol
	case *Block:
		bt := b.(*Block)
		return structurallyEqualVec(at.Args, bt.Args) && structurallyEqual(at.Body, bt.Body)
	case *InsSeq:
		bt := b.(*InsSeq)
		return structurallyEqualVec(at.Stats, bt.Stats) && structurallyEqual(at.Expr, bt.Expr)
	case *Local:
		bt := b.(*Local)
		return at.Name == bt.Name && at.Unique == bt.Unique
	case *UnresolvedIdent:
		bt := b.(*UnresolvedIdent)
		return at.Name == bt.Name
	case *Arg:
		bt := b.(*Arg)
		return at.Name == bt.Name && at.Kind == bt.Kind && at.Shadow == bt.Shadow &&
			structurallyEqual(at.Default, bt.Default)
	case *Cast:
		bt := b.(*Cast)
		return at.Kind == bt.Kind && structurallyEqual(at.Expr, bt.Expr)
	case *ZSuperArgs:
		return true
	case *RuntimeMethodDefinition:
		bt := b.(*RuntimeMethodDefinition)
		return at.Name == bt.Name && at.IsSelf == bt.IsSelf
	case *ForIn:
		bt := b.(*ForIn)
		return structurallyEqual(at.Var, bt.Var) && structurallyEqual(at.Iter, bt.Iter) &&
			structurallyEqual(at.Body, bt.Body)
	case *OpAssign:
		bt := b.(*OpAssign)
		return at.Op == bt.Op && structurallyEqual(at.Lhs, bt.Lhs) && structurallyEqual(at.Rhs, bt.Rhs)
	case *MultiAssign:
		bt := b.(*MultiAssign)
		return structurallyEqualVec(at.Targets, bt.Targets) && structurallyEqual(at.Rhs, bt.Rhs)
	case *StringInterp:
		bt := b.(*StringInterp)
		return structurallyEqualVec(at.Parts, bt.Parts)
	default:
		panic("ast: structurallyEqual: unhandled node type")
	}
}

func structurallyEqualVec(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !structurallyEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
