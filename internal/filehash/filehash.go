// Package filehash computes the per-file fingerprint spec.md 4.8 uses to
// pick between a cheap fast-path retypecheck and a full slow-path rerun of
// Namer and Resolver: a method-shape hash per definition plus a set of
// method-name hashes the file sends, grounded on the teacher's FastHash
// (xxhash.Sum64 over file bytes) equality-check idiom but applied at
// definition/usage granularity instead of whole-file bytes.
package filehash

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

// FileHash is one file's fingerprint.
type FileHash struct {
	// Definitions maps a method's qualified-name hash to a hash of its
	// declared shape: argument kinds/arity plus a structural summary of its
	// body, independent of how call sites resolve. Two definitions with the
	// same shape hash are behaviorally interchangeable for fast-path
	// purposes even if their source text differs (e.g. a renamed local).
	Definitions map[uint64]uint64
	// Usages is the sorted, deduplicated set of method-name hashes this
	// file sends, regardless of receiver or call site.
	Usages []uint64
}

// Compute walks tree (one file's canonical AST, after Namer has run) and
// hashes every method definition and send it contains.
func Compute(names *core.NameTable, tree ast.Node) FileHash {
	c := &collector{names: names, defs: map[uint64]uint64{}, uses: map[uint64]struct{}{}}
	c.walk(tree, nil)

	usages := make([]uint64, 0, len(c.uses))
	for h := range c.uses {
		usages = append(usages, h)
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i] < usages[j] })
	return FileHash{Definitions: c.defs, Usages: usages}
}

type collector struct {
	names *core.NameTable
	defs  map[uint64]uint64
	uses  map[uint64]struct{}
}

// walk recurses the full tree (so a Send nested anywhere, including inside
// a method body, is picked up as a usage) and additionally records a
// definition hash whenever it passes a MethodDef. owner is the dotted chain
// of enclosing class/module names, used to build a method's qualified name.
func (c *collector) walk(n ast.Node, owner []string) {
	if n == nil {
		return
	}
	switch t := n.(type) {
	case *ast.ClassDef:
		qualified := append(append([]string{}, owner...), c.constName(t.Name))
		for _, a := range t.Ancestors {
			c.walk(a, owner)
		}
		for _, stmt := range t.Body {
			c.walk(stmt, qualified)
		}

	case *ast.MethodDef:
		c.recordDefinition(t, owner)
		c.walk(t.Body, owner)
		for _, a := range t.Args {
			c.walk(a, owner)
		}

	case *ast.Send:
		c.uses[xxhash.Sum64String(c.names.ShowRaw(t.Fun))] = struct{}{}
		c.walk(t.Recv, owner)
		for _, a := range t.Args {
			c.walk(a, owner)
		}
		c.walk(t.Block, owner)

	case *ast.InsSeq:
		for _, s := range t.Stats {
			c.walk(s, owner)
		}
		c.walk(t.Expr, owner)
	case *ast.If:
		c.walk(t.Cond, owner)
		c.walk(t.Then, owner)
		c.walk(t.Else, owner)
	case *ast.While:
		c.walk(t.Cond, owner)
		c.walk(t.Body, owner)
	case *ast.Break:
		c.walk(t.Expr, owner)
	case *ast.Next:
		c.walk(t.Expr, owner)
	case *ast.Return:
		c.walk(t.Expr, owner)
	case *ast.Assign:
		c.walk(t.Lhs, owner)
		c.walk(t.Rhs, owner)
	case *ast.Rescue:
		c.walk(t.Body, owner)
		for _, cc := range t.Cases {
			c.walk(cc, owner)
		}
		c.walk(t.Else, owner)
		c.walk(t.Ensure, owner)
	case *ast.RescueCase:
		for _, e := range t.Exceptions {
			c.walk(e, owner)
		}
		c.walk(t.Var, owner)
		c.walk(t.Body, owner)
	case *ast.Block:
		for _, a := range t.Args {
			c.walk(a, owner)
		}
		c.walk(t.Body, owner)
	case *ast.Hash:
		for _, e := range t.Entries {
			c.walk(e.Key, owner)
			c.walk(e.Value, owner)
		}
	case *ast.Array:
		for _, e := range t.Elems {
			c.walk(e, owner)
		}
	case *ast.Cast:
		c.walk(t.Expr, owner)
	case *ast.Arg:
		c.walk(t.Default, owner)

	default:
		// Leaves: Literal, Local, UnresolvedIdent, (Un)ResolvedConstant,
		// EmptyTree, ZSuperArgs, RuntimeMethodDefinition. No children, and
		// constant references contribute no usage hash (FileHash tracks
		// sent method names, not referenced constants).
	}
}

func (c *collector) constName(n ast.Node) string {
	switch t := n.(type) {
	case *ast.UnresolvedConstant:
		return c.names.ShowRaw(t.Name)
	case *ast.ResolvedConstant:
		return "<resolved>"
	default:
		return "<anonymous>"
	}
}

// recordDefinition hashes fullName -> shapeHash(method), where fullName is
// the dotted owner chain plus the method's own name.
func (c *collector) recordDefinition(m *ast.MethodDef, owner []string) {
	full := append(append([]string{}, owner...), c.names.ShowRaw(m.Name))
	nameHash := xxhash.Sum64String(joinDots(full))
	c.defs[nameHash] = shapeHash(m)
}

func joinDots(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// shapeHash digests a method's argument kinds/arity and a structural
// summary of its body (tags and literal kinds only, no identifiers) into
// one hash. Two syntactically different bodies that only rename locals or
// reorder unrelated statements are NOT guaranteed to collide -- this is a
// structural fingerprint, not a semantic one; it exists to cheaply rule out
// "nothing about this definition's shape changed," not to prove equivalence.
func shapeHash(m *ast.MethodDef) uint64 {
	d := xxhash.New()
	d.Write([]byte{byte(m.Flags)})
	for _, a := range m.Args {
		writeArgShape(d, a)
	}
	writeNodeShape(d, m.Body)
	return d.Sum64()
}

func writeArgShape(d *xxhash.Digest, n ast.Node) {
	arg, ok := n.(*ast.Arg)
	if !ok {
		return
	}
	d.Write([]byte{byte(arg.Kind)})
	if arg.Shadow {
		d.Write([]byte{1})
	}
}

// writeNodeShape writes a deterministic token stream for n's structural
// shape: its Tag, plus the same for every Non-leaf child. Deliberately
// excludes identifiers and literal values so that the hash tracks shape
// (what kind of statements, how many, how nested) not naming.
func writeNodeShape(d *xxhash.Digest, n ast.Node) {
	if n == nil {
		d.Write([]byte{0})
		return
	}
	d.Write([]byte{byte(n.Tag())})
	switch t := n.(type) {
	case *ast.InsSeq:
		d.Write([]byte{byte(len(t.Stats))})
		for _, s := range t.Stats {
			writeNodeShape(d, s)
		}
		writeNodeShape(d, t.Expr)
	case *ast.If:
		writeNodeShape(d, t.Cond)
		writeNodeShape(d, t.Then)
		writeNodeShape(d, t.Else)
	case *ast.While:
		writeNodeShape(d, t.Cond)
		writeNodeShape(d, t.Body)
	case *ast.Return:
		writeNodeShape(d, t.Expr)
	case *ast.Break:
		writeNodeShape(d, t.Expr)
	case *ast.Next:
		writeNodeShape(d, t.Expr)
	case *ast.Assign:
		writeNodeShape(d, t.Lhs)
		writeNodeShape(d, t.Rhs)
	case *ast.Send:
		writeNodeShape(d, t.Recv)
		d.Write([]byte{byte(len(t.Args))})
		for _, a := range t.Args {
			writeNodeShape(d, a)
		}
		writeNodeShape(d, t.Block)
	case *ast.Literal:
		d.Write([]byte{byte(t.Kind)})
	case *ast.Hash:
		d.Write([]byte{byte(len(t.Entries))})
		for _, e := range t.Entries {
			writeNodeShape(d, e.Key)
			writeNodeShape(d, e.Value)
		}
	case *ast.Array:
		d.Write([]byte{byte(len(t.Elems))})
		for _, e := range t.Elems {
			writeNodeShape(d, e)
		}
	case *ast.Cast:
		d.Write([]byte{byte(t.Kind)})
		writeNodeShape(d, t.Expr)
	case *ast.Block:
		d.Write([]byte{byte(len(t.Args))})
		writeNodeShape(d, t.Body)
	case *ast.Rescue:
		writeNodeShape(d, t.Body)
		d.Write([]byte{byte(len(t.Cases))})
		for _, cc := range t.Cases {
			writeNodeShape(d, cc)
		}
		writeNodeShape(d, t.Else)
		writeNodeShape(d, t.Ensure)
	case *ast.RescueCase:
		d.Write([]byte{byte(len(t.Exceptions))})
		writeNodeShape(d, t.Body)
	}
}

// Diff reports which definitions changed shape between old and new, plus
// whether the defined-method set itself differs. Per spec.md 4.8: a
// changed or added/removed method set forces the slow path; otherwise the
// (possibly empty) changedMethods set drives the fast path.
func Diff(old, new FileHash) (changedMethods map[uint64]bool, needsSlowPath bool) {
	changedMethods = map[uint64]bool{}
	if len(old.Definitions) != len(new.Definitions) {
		return changedMethods, true
	}
	for name, oldShape := range old.Definitions {
		newShape, ok := new.Definitions[name]
		if !ok {
			return changedMethods, true
		}
		if newShape != oldShape {
			changedMethods[name] = true
		}
	}
	return changedMethods, false
}

// AffectedFiles returns every file (besides the edited one) whose recorded
// Usages intersects changedMethods, deduplicated. usages is every other
// open file's FileHash, keyed by whatever file-identifying type the caller
// uses.
func AffectedFiles[K comparable](usages map[K]FileHash, changedMethods map[uint64]bool) []K {
	if len(changedMethods) == 0 {
		return nil
	}
	var affected []K
	for file, fh := range usages {
		if intersects(fh.Usages, changedMethods) {
			affected = append(affected, file)
		}
	}
	return affected
}

func intersects(usages []uint64, changedMethods map[uint64]bool) bool {
	for _, h := range usages {
		if changedMethods[h] {
			return true
		}
	}
	return false
}
