// Package editorfront is the editor-facing query layer spec.md's Editor
// Protocol section and SPEC_FULL.md 2.6 describe: hover, definition,
// references, and completion answered against a Typechecker's last
// committed snapshot. This file holds the pure, MCP-independent logic --
// walking a file's canonical AST to the node at a cursor position and
// translating symbol-table state into editor-shaped results -- so it is
// testable without a transport. server.go wires these onto MCP tools.
package editorfront

import (
	"sort"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
)

// Position is a cursor location using the editor protocol's convention:
// 0-based line, 0-based column (byte offset within the line).
type Position struct {
	Line      int
	Character int
}

// Location identifies a span in a named file, in editor-protocol Position
// terms.
type Location struct {
	Path  string
	Start Position
	End   Position
}

// offsetOf converts pos to a byte offset into file, using its precomputed
// LineIndex. Line is adjusted from editor-protocol's 0-based convention to
// LineIndex's 1-based one.
func offsetOf(file *core.File, pos Position) uint32 {
	return file.Lines.Offset(pos.Line+1, pos.Character)
}

func locationOf(gs *core.GlobalState, l core.Loc) (Location, bool) {
	if l.IsNone() {
		return Location{}, false
	}
	f := gs.Files.Get(l.File)
	if f == nil || f.Lines == nil {
		return Location{}, false
	}
	start := f.Lines.LineCol(l.Offsets.Begin)
	end := f.Lines.LineCol(l.Offsets.End)
	return Location{
		Path:  f.Path,
		Start: Position{Line: start.Line - 1, Character: start.Column},
		End:   Position{Line: end.Line - 1, Character: end.Column},
	}, true
}

// nodePath returns every node on the path from root down to the innermost
// node whose span contains offset, root first. An empty result means offset
// falls outside root entirely.
func nodePath(root ast.Node, offset uint32) []ast.Node {
	var path []ast.Node
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if n == nil || !contains(n.Loc(), offset) {
			return
		}
		path = append(path, n)
		for _, c := range children(n) {
			walk(c)
		}
	}
	walk(root)
	return path
}

func contains(loc core.LocOffsets, offset uint32) bool {
	return offset >= loc.Begin && offset <= loc.End
}

// children returns n's direct child Nodes, skipping nils. Grounded on
// filehash's collector.walk traversal, generalized to return children
// instead of folding over them.
func children(n ast.Node) []ast.Node {
	switch t := n.(type) {
	case *ast.ClassDef:
		out := append([]ast.Node{t.Name}, t.Ancestors...)
		return append(out, t.Body...)
	case *ast.MethodDef:
		out := append([]ast.Node{t.Body}, t.Args...)
		return out
	case *ast.Send:
		out := []ast.Node{t.Recv}
		out = append(out, t.Args...)
		if t.Block != nil {
			out = append(out, t.Block)
		}
		return out
	case *ast.InsSeq:
		out := append([]ast.Node{}, t.Stats...)
		return append(out, t.Expr)
	case *ast.If:
		return []ast.Node{t.Cond, t.Then, t.Else}
	case *ast.While:
		return []ast.Node{t.Cond, t.Body}
	case *ast.Break:
		return []ast.Node{t.Expr}
	case *ast.Next:
		return []ast.Node{t.Expr}
	case *ast.Return:
		return []ast.Node{t.Expr}
	case *ast.Assign:
		return []ast.Node{t.Lhs, t.Rhs}
	case *ast.Rescue:
		out := []ast.Node{t.Body}
		out = append(out, t.Cases...)
		return append(out, t.Else, t.Ensure)
	case *ast.RescueCase:
		out := append([]ast.Node{}, t.Exceptions...)
		out = append(out, t.Var, t.Body)
		return out
	case *ast.Block:
		out := append([]ast.Node{}, t.Args...)
		return append(out, t.Body)
	case *ast.Hash:
		out := make([]ast.Node, 0, len(t.Entries)*2)
		for _, e := range t.Entries {
			out = append(out, e.Key, e.Value)
		}
		return out
	case *ast.Array:
		return t.Elems
	case *ast.Cast:
		return []ast.Node{t.Expr}
	case *ast.Arg:
		return []ast.Node{t.Default}
	default:
		// Leaves: Literal, Local, UnresolvedIdent, (Un)ResolvedConstant,
		// EmptyTree, ZSuperArgs, RuntimeMethodDefinition.
		return nil
	}
}

// HoverInfo is a human-readable description of whatever editorfront found
// under the cursor.
type HoverInfo struct {
	Found   bool
	Kind    string
	Name    string
	Summary string
}

// Hover answers a hover request: the innermost symbol-bearing node under
// offset, described via gs's symbol/name tables.
func Hover(gs *core.GlobalState, tree ast.Node, offset uint32) HoverInfo {
	path := nodePath(tree, offset)
	for i := len(path) - 1; i >= 0; i-- {
		switch t := path[i].(type) {
		case *ast.ResolvedConstant:
			return describeSymbol(gs, t.Symbol)
		case *ast.MethodDef:
			if !t.Symbol.IsZero() {
				return describeSymbol(gs, t.Symbol)
			}
		case *ast.ClassDef:
			if !t.Symbol.IsZero() {
				return describeSymbol(gs, t.Symbol)
			}
		case *ast.Send:
			return HoverInfo{Found: true, Kind: "call", Name: gs.Names.ShowRaw(t.Fun), Summary: "method call, dispatched dynamically"}
		case *ast.UnresolvedConstant:
			return HoverInfo{Found: true, Kind: "unresolved", Name: gs.Names.ShowRaw(t.Name), Summary: "could not be resolved"}
		}
	}
	return HoverInfo{Found: false}
}

func describeSymbol(gs *core.GlobalState, ref core.SymbolRef) HoverInfo {
	if ref.IsZero() {
		return HoverInfo{Found: false}
	}
	switch ref.Kind {
	case core.SymClassOrModule:
		c := gs.Symbols.Class(ref)
		return HoverInfo{Found: true, Kind: "class_or_module", Name: gs.Names.ShowRaw(c.Name), Summary: classSummary(c)}
	case core.SymMethod:
		m := gs.Symbols.Method(ref)
		return HoverInfo{Found: true, Kind: "method", Name: gs.Names.ShowRaw(m.Name), Summary: methodSignature(gs.Names, m)}
	case core.SymField:
		f := gs.Symbols.Field(ref)
		return HoverInfo{Found: true, Kind: "field", Name: gs.Names.ShowRaw(f.Name)}
	case core.SymStaticField:
		f := gs.Symbols.StaticField(ref)
		return HoverInfo{Found: true, Kind: "static_field", Name: gs.Names.ShowRaw(f.Name)}
	case core.SymTypeMember:
		tm := gs.Symbols.TypeMember(ref)
		return HoverInfo{Found: true, Kind: "type_member", Name: gs.Names.ShowRaw(tm.Name)}
	case core.SymTypeParameter:
		tp := gs.Symbols.TypeParam(ref)
		return HoverInfo{Found: true, Kind: "type_parameter", Name: gs.Names.ShowRaw(tp.Name)}
	default:
		return HoverInfo{Found: false}
	}
}

func classSummary(c *core.ClassOrModule) string {
	if c.Kind == core.KindModule {
		return "module"
	}
	return "class"
}

func methodSignature(nt *core.NameTable, m *core.Method) string {
	out := "def " + nt.ShowRaw(m.Name) + "("
	for i, a := range m.Arguments {
		if i > 0 {
			out += ", "
		}
		out += argSignature(nt, a)
	}
	return out + ")"
}

func argSignature(nt *core.NameTable, a core.Argument) string {
	name := nt.ShowRaw(a.Name)
	switch a.Kind {
	case core.ArgRest:
		return "*" + name
	case core.ArgKeyword:
		return name + ":"
	case core.ArgKeywordOptional:
		return name + ": ..."
	case core.ArgOptional:
		return name + "=..."
	case core.ArgBlock:
		return "&" + name
	default:
		return name
	}
}

// Definition answers a go-to-definition request: where the symbol under
// offset was declared.
func Definition(gs *core.GlobalState, tree ast.Node, offset uint32) (Location, bool) {
	ref, ok := symbolAt(tree, offset)
	if !ok {
		return Location{}, false
	}
	loc, ok := firstLoc(gs, ref)
	if !ok {
		return Location{}, false
	}
	return locationOf(gs, loc)
}

// symbolAt returns the SymbolRef named by the innermost symbol-bearing node
// under offset, if any.
func symbolAt(tree ast.Node, offset uint32) (core.SymbolRef, bool) {
	path := nodePath(tree, offset)
	for i := len(path) - 1; i >= 0; i-- {
		switch t := path[i].(type) {
		case *ast.ResolvedConstant:
			if !t.Symbol.IsZero() {
				return t.Symbol, true
			}
		case *ast.MethodDef:
			if !t.Symbol.IsZero() {
				return t.Symbol, true
			}
		case *ast.ClassDef:
			if !t.Symbol.IsZero() {
				return t.Symbol, true
			}
		}
	}
	return core.SymbolRef{}, false
}

func firstLoc(gs *core.GlobalState, ref core.SymbolRef) (core.Loc, bool) {
	switch ref.Kind {
	case core.SymClassOrModule:
		c := gs.Symbols.Class(ref)
		if len(c.Locs) == 0 {
			return core.Loc{}, false
		}
		return c.Locs[0], true
	case core.SymMethod:
		m := gs.Symbols.Method(ref)
		if len(m.Locs) == 0 {
			return core.Loc{}, false
		}
		return m.Locs[0], true
	case core.SymField:
		return gs.Symbols.Field(ref).Loc, true
	case core.SymStaticField:
		return gs.Symbols.StaticField(ref).Loc, true
	case core.SymTypeMember:
		return gs.Symbols.TypeMember(ref).Loc, true
	case core.SymTypeParameter:
		return gs.Symbols.TypeParam(ref).Loc, true
	default:
		return core.Loc{}, false
	}
}

// References answers a find-references request: every ResolvedConstant or
// MethodDef across trees whose Symbol names target.
func References(gs *core.GlobalState, trees map[core.FileRef]ast.Node, target core.SymbolRef) []Location {
	var locs []core.Loc
	for ref, tree := range trees {
		referencesIn(tree, ref, target, &locs)
	}

	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if loc, ok := locationOf(gs, l); ok {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Start.Line < out[j].Start.Line
	})
	return out
}

// referencesIn walks tree (known to belong to ref) and reports every node
// naming target.
func referencesIn(tree ast.Node, ref core.FileRef, target core.SymbolRef, out *[]core.Loc) {
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if n == nil {
			return
		}
		switch t := n.(type) {
		case *ast.ResolvedConstant:
			if t.Symbol == target {
				*out = append(*out, core.Loc{File: ref, Offsets: t.L})
			}
		case *ast.MethodDef:
			if t.Symbol == target {
				*out = append(*out, core.Loc{File: ref, Offsets: t.DeclLoc})
			}
		}
		for _, c := range children(n) {
			walk(c)
		}
	}
	walk(tree)
}

// Completion lists member names visible from the class or module enclosing
// offset (including inherited members walked up the superclass chain),
// filtered to those with prefix.
func Completion(gs *core.GlobalState, tree ast.Node, offset uint32, prefix string) []string {
	path := nodePath(tree, offset)
	var owner core.SymbolRef
	for i := len(path) - 1; i >= 0; i-- {
		if cd, ok := path[i].(*ast.ClassDef); ok && !cd.Symbol.IsZero() {
			owner = cd.Symbol
			break
		}
	}
	if owner.IsZero() {
		return nil
	}

	seen := map[string]bool{}
	var names []string
	for cur := owner; !cur.IsZero(); {
		c := gs.Symbols.Class(cur)
		for member := range c.Members {
			name := gs.Names.ShowRaw(member)
			if seen[name] || !hasPrefix(name, prefix) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
		cur = c.Superclass
	}
	sort.Strings(names)
	return names
}

func hasPrefix(s, prefix string) bool {
	if prefix == "" {
		return true
	}
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}
