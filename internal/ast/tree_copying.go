package ast

import "fmt"

// ErrDeepCopyHitAvoid is returned by DeepCopyAvoiding when the traversal
// reaches the exact node instance being avoided. The source implementation
// signals this with a thrown DeepCopyError caught at the call site
// (original_source/ast/TreeCopying.cc); Go has no stack-unwinding exception,
// so the same "abort the whole copy" behavior is expressed as an error
// returned up through every recursive call instead of a panic/recover pair,
// since this is an expected, non-programmer-error outcome the caller is
// meant to branch on.
var ErrDeepCopyHitAvoid = fmt.Errorf("ast: deep copy reached the avoided node")

// DeepCopy clones n and every descendant, recursively. The copy shares no
// Node pointers with the original.
func DeepCopy(n Node) Node {
	out, err := deepCopy(n, nil, true)
	if err != nil {
		// unreachable: root=true never returns ErrDeepCopyHitAvoid
		panic(err)
	}
	return out
}

// DeepCopyAvoiding clones n and every descendant, failing with
// ErrDeepCopyHitAvoid if the traversal encounters the avoid node anywhere
// below the root (the root itself is exempt, matching the source's
// `!root && this == avoid` check).
func DeepCopyAvoiding(n Node, avoid Node) (Node, error) {
	return deepCopy(n, avoid, true)
}

func deepCopy(n Node, avoid Node, root bool) (Node, error) {
	if n == nil {
		return nil, nil
	}
	if !root && avoid != nil && n == avoid {
		return nil, ErrDeepCopyHitAvoid
	}

	switch t := n.(type) {
	case *EmptyTree:
		c := *t
		return &c, nil
	case *ClassDef:
		name, err := deepCopy(t.Name, avoid, false)
		if err != nil {
			return nil, err
		}
		ancestors, err := deepCopyVec(t.Ancestors, avoid)
		if err != nil {
			return nil, err
		}
		body, err := deepCopyVec(t.Body, avoid)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Name = name
		c.Ancestors = ancestors
		c.Body = body
		return &c, nil
	case *MethodDef:
		args, err := deepCopyVec(t.Args, avoid)
		if err != nil {
			return nil, err
		}
		body, err := deepCopy(t.Body, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Args = args
		c.Body = body
		return &c, nil
	case *If:
		cond, err := deepCopy(t.Cond, avoid, false)
		if err != nil {
			return nil, err
		}
		thenp, err := deepCopy(t.Then, avoid, false)
		if err != nil {
			return nil, err
		}
		elsep, err := deepCopy(t.Else, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Cond, c.Then, c.Else = cond, thenp, elsep
		return &c, nil
	case *While:
		cond, err := deepCopy(t.Cond, avoid, false)
		if err != nil {
			return nil, err
		}
		body, err := deepCopy(t.Body, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Cond, c.Body = cond, body
		return &c, nil
	case *Break:
		expr, err := deepCopy(t.Expr, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Expr = expr
		return &c, nil
	case *Next:
		expr, err := deepCopy(t.Expr, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Expr = expr
		return &c, nil
	case *Return:
		expr, err := deepCopy(t.Expr, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Expr = expr
		return &c, nil
	case *RescueCase:
		exceptions, err := deepCopyVec(t.Exceptions, avoid)
		if err != nil {
			return nil, err
		}
		v, err := deepCopy(t.Var, avoid, false)
		if err != nil {
			return nil, err
		}
		body, err := deepCopy(t.Body, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Exceptions, c.Var, c.Body = exceptions, v, body
		return &c, nil
	case *Rescue:
		body, err := deepCopy(t.Body, avoid, false)
		if err != nil {
			return nil, err
		}
		cases, err := deepCopyVec(t.Cases, avoid)
		if err != nil {
			return nil, err
		}
		elsep, err := deepCopy(t.Else, avoid, false)
		if err != nil {
			return nil, err
		}
		ensure, err := deepCopy(t.Ensure, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Body, c.Cases, c.Else, c.Ensure = body, cases, elsep, ensure
		return &c, nil
	case *Assign:
		lhs, err := deepCopy(t.Lhs, avoid, false)
		if err != nil {
			return nil, err
		}
		rhs, err := deepCopy(t.Rhs, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Lhs, c.Rhs = lhs, rhs
		return &c, nil
	case *Send:
		recv, err := deepCopy(t.Recv, avoid, false)
		if err != nil {
			return nil, err
		}
		args, err := deepCopyVec(t.Args, avoid)
		if err != nil {
			return nil, err
		}
		block, err := deepCopy(t.Block, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Recv, c.Args, c.Block = recv, args, block
		return &c, nil
	case *Hash:
		entries := make([]HashEntry, len(t.Entries))
		for i, e := range t.Entries {
			k, err := deepCopy(e.Key, avoid, false)
			if err != nil {
				return nil, err
			}
			v, err := deepCopy(e.Value, avoid, false)
			if err != nil {
				return nil, err
			}
			entries[i] = HashEntry{Key: k, Value: v}
		}
		c := *t
		c.Entries = entries
		return &c, nil
	case *Array:
		elems, err := deepCopyVec(t.Elems, avoid)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Elems = elems
		return &c, nil
	case *Literal:
		c := *t
		return &c, nil
	case *UnresolvedConstant:
		scope, err := deepCopy(t.Scope, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Scope = scope
		return &c, nil
	case *ResolvedConstant:
		c := *t
		return &c, nil
	case *Block:
		args, err := deepCopyVec(t.Args, avoid)
		if err != nil {
			return nil, err
		}
		body, err := deepCopy(t.Body, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Args, c.Body = args, body
		return &c, nil
	case *InsSeq:
		stats, err := deepCopyVec(t.Stats, avoid)
		if err != nil {
			return nil, err
		}
		expr, err := deepCopy(t.Expr, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Stats, c.Expr = stats, expr
		return &c, nil
	case *Local:
		c := *t
		return &c, nil
	case *UnresolvedIdent:
		c := *t
		return &c, nil
	case *Arg:
		def, err := deepCopy(t.Default, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Default = def
		return &c, nil
	case *Cast:
		expr, err := deepCopy(t.Expr, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Expr = expr
		return &c, nil
	case *ZSuperArgs:
		c := *t
		return &c, nil
	case *RuntimeMethodDefinition:
		c := *t
		return &c, nil
	case *ForIn:
		v, err := deepCopy(t.Var, avoid, false)
		if err != nil {
			return nil, err
		}
		iter, err := deepCopy(t.Iter, avoid, false)
		if err != nil {
			return nil, err
		}
		body, err := deepCopy(t.Body, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Var, c.Iter, c.Body = v, iter, body
		return &c, nil
	case *OpAssign:
		lhs, err := deepCopy(t.Lhs, avoid, false)
		if err != nil {
			return nil, err
		}
		rhs, err := deepCopy(t.Rhs, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Lhs, c.Rhs = lhs, rhs
		return &c, nil
	case *MultiAssign:
		targets, err := deepCopyVec(t.Targets, avoid)
		if err != nil {
			return nil, err
		}
		rhs, err := deepCopy(t.Rhs, avoid, false)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Targets, c.Rhs = targets, rhs
		return &c, nil
	case *StringInterp:
		parts, err := deepCopyVec(t.Parts, avoid)
		if err != nil {
			return nil, err
		}
		c := *t
		c.Parts = parts
		return &c, nil
	default:
		panic(fmt.Sprintf("ast: deepCopy: unhandled node type %T", n))
	}
}

// DeepCopyVec clones every node in nodes independently.
func DeepCopyVec(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = DeepCopy(n)
	}
	return out
}

func deepCopyVec(nodes []Node, avoid Node) ([]Node, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		c, err := deepCopy(n, avoid, false)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
