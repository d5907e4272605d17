// Package namer populates a GlobalState's symbol table from one file's
// canonical AST: every class/module definition, every method definition,
// and every top-level constant assignment becomes (or extends) a Symbol.
// Namer is the first pass that touches GlobalState itself; it must run
// inside both an UnfreezeNameTable and UnfreezeSymbolTable capability and
// the caller must release both before handing the tree to Resolver.
package namer

import (
	"fmt"

	"github.com/standardbeagle/rbtc/internal/ast"
	"github.com/standardbeagle/rbtc/internal/core"
	"github.com/standardbeagle/rbtc/internal/diagnostics"
)

// Namer runs one pass per file against a shared GlobalState.
type Namer struct {
	gs *core.GlobalState
}

// New builds a Namer bound to gs. gs's name and symbol tables must already
// be unfrozen by the caller.
func New(gs *core.GlobalState) *Namer {
	return &Namer{gs: gs}
}

// Run walks tree (the output of LocalVars for one file) and enters its
// declarations into the symbol table, rooted at the GlobalState's root
// namespace.
func (nm *Namer) Run(file core.FileRef, tree ast.Node) {
	nm.walkStatement(file, tree, nm.gs.Symbols.Root())
}

func (nm *Namer) locAt(file core.FileRef, n ast.Node) core.Loc {
	return core.Loc{File: file, Offsets: n.Loc()}
}

// walkStatement processes one statement position: a top-level InsSeq entry
// or a ClassDef body entry. Only ClassDef, MethodDef and constant-target
// Assign carry symbol-table effects; everything else is left for CFG/Infer.
func (nm *Namer) walkStatement(file core.FileRef, n ast.Node, owner core.SymbolRef) {
	switch t := n.(type) {
	case *ast.InsSeq:
		for _, s := range t.Stats {
			nm.walkStatement(file, s, owner)
		}
		nm.walkStatement(file, t.Expr, owner)
	case *ast.ClassDef:
		nm.enterClass(file, t, owner)
	case *ast.MethodDef:
		nm.enterMethod(file, t, owner)
	case *ast.Assign:
		nm.maybeEnterStaticField(file, t, owner)
	default:
		// expression statements, control flow at class/top level, etc.
		// carry no symbol-table effect.
	}
}

func (nm *Namer) enterClass(file core.FileRef, cd *ast.ClassDef, owner core.SymbolRef) {
	nameRef, ok := constantName(cd.Name)
	if !ok {
		return
	}
	loc := nm.locAt(file, cd)

	ownerSym := nm.gs.Symbols.Class(owner)
	var ref core.SymbolRef
	if existing, ok := ownerSym.Members[nameRef]; ok && existing.Kind == core.SymClassOrModule {
		ref = existing
		class := nm.gs.Symbols.Class(ref)
		class.Locs = append(class.Locs, loc)
		if kind := classKind(cd.Kind); class.Kind != kind {
			nm.gs.Errors.Push(diagnostics.New(
				diagnostics.CodeRedefinedClassAsModule, loc,
				fmt.Sprintf("redefining %s changes class/module kind", nm.gs.Names.ShowRaw(nameRef)),
			))
		}
	} else {
		ref = nm.gs.Symbols.EnterClass(&core.ClassOrModule{
			Owner:   owner,
			Name:    nameRef,
			Kind:    classKind(cd.Kind),
			Members: map[core.NameRef]core.SymbolRef{},
			Locs:    []core.Loc{loc},
		})
		ownerSym.Members[nameRef] = ref
	}
	cd.Symbol = ref

	for _, stmt := range cd.Body {
		nm.walkStatement(file, stmt, ref)
	}
}

func (nm *Namer) enterMethod(file core.FileRef, md *ast.MethodDef, owner core.SymbolRef) {
	loc := nm.locAt(file, md)
	args := nm.convertArgs(md.Args)

	ownerSym := nm.gs.Symbols.Class(owner)
	if existing, ok := ownerSym.Members[md.Name]; ok && existing.Kind == core.SymMethod {
		method := nm.gs.Symbols.Method(existing)
		if !sameShape(method.Arguments, args) {
			nm.gs.Errors.Push(diagnostics.New(
				diagnostics.CodeMethodRedefinedArity, loc,
				fmt.Sprintf("method %s redefined with a different argument shape", nm.gs.Names.ShowRaw(md.Name)),
			))
		}
		method.Arguments = args
		method.Flags = methodFlags(md.Flags)
		method.Locs = append(method.Locs, loc)
		md.Symbol = existing
		return
	}

	ref := nm.gs.Symbols.EnterMethod(&core.Method{
		Owner:     owner,
		Name:      md.Name,
		Arguments: args,
		Result:    core.Untyped,
		Flags:     methodFlags(md.Flags),
		Locs:      []core.Loc{loc},
	})
	ownerSym.Members[md.Name] = ref
	md.Symbol = ref
}

func (nm *Namer) maybeEnterStaticField(file core.FileRef, as *ast.Assign, owner core.SymbolRef) {
	uc, ok := as.Lhs.(*ast.UnresolvedConstant)
	if !ok {
		return
	}
	loc := nm.locAt(file, as)
	ownerSym := nm.gs.Symbols.Class(owner)
	if existing, ok := ownerSym.Members[uc.Name]; ok && existing.Kind == core.SymStaticField {
		sf := nm.gs.Symbols.StaticField(existing)
		sf.Loc = loc
		return
	}
	ref := nm.gs.Symbols.EnterStaticField(&core.StaticField{
		Owner:    owner,
		Name:     uc.Name,
		Declared: core.Untyped,
		Loc:      loc,
	})
	ownerSym.Members[uc.Name] = ref
}

func (nm *Namer) convertArgs(args []ast.Node) []core.Argument {
	out := make([]core.Argument, 0, len(args))
	for _, a := range args {
		arg, ok := a.(*ast.Arg)
		if !ok {
			continue
		}
		kind := arg.Kind
		if arg.Shadow {
			kind = core.ArgShadow
		}
		out = append(out, core.Argument{Name: arg.Name, Kind: kind, Type: core.Untyped, Loc: core.NoLoc})
	}
	return out
}

func constantName(n ast.Node) (core.NameRef, bool) {
	switch t := n.(type) {
	case *ast.UnresolvedConstant:
		return t.Name, true
	case *ast.ResolvedConstant:
		return core.NameRef{}, false
	default:
		return core.NameRef{}, false
	}
}

func classKind(k ast.ClassKind) core.ClassKind {
	if k == ast.ClassKindModule {
		return core.KindModule
	}
	return core.KindClass
}

func methodFlags(f ast.MethodDefFlags) core.MethodFlags {
	var out core.MethodFlags
	if f&ast.MethodDefSelf != 0 {
		out |= core.MethodSelf
	}
	if f&ast.MethodDefRewriterSynthesized != 0 {
		out |= core.MethodRewriterSynthesized
	}
	return out
}

// sameShape reports whether two argument lists have the same arity and
// per-position kind -- the "signature shape" spec.md's redefinition
// diagnostic is keyed on, not full type equality (Namer never consults
// types).
func sameShape(a, b []core.Argument) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind {
			return false
		}
	}
	return true
}
