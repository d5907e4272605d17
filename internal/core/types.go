package core

import (
	"sort"
	"strings"
)

// Type is the sum of every type shape the checker manipulates. Types are
// immutable and structurally shared: constructors never mutate an existing
// Type, they build a new (possibly cached) one.
//
// Tagged-variant dispatch here uses a Go type switch over concrete structs
// implementing this marker interface, the same "tag enum behind an
// interface" shape AST nodes use (core/AST design note 9: "operations that
// once used virtual dispatch become a tag-switch with a default
// `unreachable` arm").
type Type interface {
	isType()
	// Show renders the type the way a diagnostic would print it.
	Show(nt *NameTable) string
}

// TypeRef is an alias for Type used at Symbol field sites, documenting that
// the value stored there is a reference into the structurally-shared type
// universe rather than an owned subtree (unlike AST nodes, which Symbols
// never hold directly).
type TypeRef = Type

// ClassType is a concrete, non-generic reference to a class or module.
type ClassType struct{ Sym SymbolRef }

// AppliedType is a generic class type applied to type arguments, e.g. Array[Integer].
type AppliedType struct {
	Sym  SymbolRef
	Args []Type
}

// UnionType is `A | B | ...`. Constructors normalize: flatten nested unions,
// drop duplicate and Bottom members, collapse to the single member if only
// one remains.
type UnionType struct{ Members []Type }

// IntersectionType is `A & B & ...`, normalized the same way as UnionType.
type IntersectionType struct{ Members []Type }

// LiteralKind distinguishes which literal value a LiteralType pins.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
	LiteralString
	LiteralSymbol
)

// LiteralType is a singleton type for one literal value, e.g. the type of
// the expression `5` as opposed to the general class type Integer.
type LiteralType struct {
	Kind      LiteralKind
	Underlying SymbolRef // the class type this literal widens to (e.g. Integer)
	IntVal    int64
	FloatVal  float64
	BoolVal   bool
	StrVal    NameRef // interned for LiteralString and LiteralSymbol
}

// SelfType stands for "the type of self in this method", resolved
// per-call-site by Infer rather than at the symbol's definition.
type SelfType struct{}

// TypeVar is an as-yet-unsolved inference variable, e.g. a generic method's
// type parameter before its call-site argument types pin it down.
type TypeVar struct{ Sym SymbolRef }

// special is the kind of one of the three non-decomposable sentinel types.
type special uint8

const (
	specialTop special = iota
	specialBottom
	specialUntyped
)

type specialType struct{ which special }

func (specialType) isType() {}
func (s specialType) Show(*NameTable) string {
	switch s.which {
	case specialTop:
		return "top"
	case specialBottom:
		return "bottom"
	default:
		return "untyped"
	}
}

// Top is the supertype of every type (⊤).
var Top Type = specialType{which: specialTop}

// Bottom is the subtype of every type (⊥), the type of unreachable code.
var Bottom Type = specialType{which: specialBottom}

// Untyped is the type assigned where inference gives up (missing method,
// widened loop variable past the iteration cap, a stub constant's value).
var Untyped Type = specialType{which: specialUntyped}

func (ClassType) isType()        {}
func (AppliedType) isType()      {}
func (UnionType) isType()        {}
func (IntersectionType) isType() {}
func (LiteralType) isType()      {}
func (SelfType) isType()         {}
func (TypeVar) isType()          {}

func (t ClassType) Show(nt *NameTable) string { return showClassRef(nt, t.Sym) }

func (t AppliedType) Show(nt *NameTable) string {
	var b strings.Builder
	b.WriteString(showClassRef(nt, t.Sym))
	b.WriteByte('[')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Show(nt))
	}
	b.WriteByte(']')
	return b.String()
}

func (t UnionType) Show(nt *NameTable) string { return showJoin(nt, t.Members, " | ") }

func (t IntersectionType) Show(nt *NameTable) string { return showJoin(nt, t.Members, " & ") }

func showJoin(nt *NameTable, members []Type, sep string) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.Show(nt)
	}
	return strings.Join(parts, sep)
}

func (t LiteralType) Show(nt *NameTable) string {
	switch t.Kind {
	case LiteralInt:
		return showClassRef(nt, t.Underlying) + "(" + itoa(t.IntVal) + ")"
	case LiteralString:
		return "String(\"" + nt.ShowRaw(t.StrVal) + "\")"
	default:
		return showClassRef(nt, t.Underlying)
	}
}

func (SelfType) Show(*NameTable) string { return "self" }

func (t TypeVar) Show(nt *NameTable) string { return "<var " + showClassRef(nt, t.Sym) + ">" }

func showClassRef(nt *NameTable, sym SymbolRef) string {
	// The caller is expected to have a SymbolTable to resolve names; in
	// isolation we fall back to a positional placeholder. No other formatter
	// exists: Infer's diagnostics call Show too, so class types render as
	// this placeholder there as well.
	return "<class#" + itoa(int64(sym.Index)) + ">"
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// NewUnion builds a normalized union: flattens nested unions, removes
// Bottom members and duplicates (by a conservative structural key), and
// collapses to the sole member when only one remains.
func NewUnion(members ...Type) Type {
	flat := flattenUnion(members)
	flat = dedupeTypes(flat)
	if len(flat) == 0 {
		return Bottom
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortTypes(flat)
	return UnionType{Members: flat}
}

func flattenUnion(members []Type) []Type {
	var out []Type
	for _, m := range members {
		if m == Bottom {
			continue
		}
		if u, ok := m.(UnionType); ok {
			out = append(out, flattenUnion(u.Members)...)
			continue
		}
		out = append(out, m)
	}
	return out
}

// NewIntersection builds a normalized intersection analogously to NewUnion,
// removing Top members instead of Bottom ones.
func NewIntersection(members ...Type) Type {
	var flat []Type
	for _, m := range members {
		if m == Top {
			continue
		}
		if it, ok := m.(IntersectionType); ok {
			flat = append(flat, it.Members...)
			continue
		}
		flat = append(flat, m)
	}
	flat = dedupeTypes(flat)
	if len(flat) == 0 {
		return Top
	}
	if len(flat) == 1 {
		return flat[0]
	}
	sortTypes(flat)
	return IntersectionType{Members: flat}
}

func dedupeTypes(in []Type) []Type {
	out := make([]Type, 0, len(in))
	for _, t := range in {
		dup := false
		for _, seen := range out {
			if TypesStructurallyEqual(t, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t)
		}
	}
	return out
}

func sortTypes(ts []Type) {
	sort.SliceStable(ts, func(i, j int) bool {
		return typeRank(ts[i]) < typeRank(ts[j])
	})
}

// typeRank gives a cheap, stable ordering key so normalized unions/
// intersections with the same members always render in the same order.
func typeRank(t Type) string {
	switch v := t.(type) {
	case ClassType:
		return "0:" + itoa(int64(v.Sym.Index))
	case AppliedType:
		return "1:" + itoa(int64(v.Sym.Index))
	case LiteralType:
		return "2:" + itoa(int64(v.Kind)) + ":" + itoa(v.IntVal)
	default:
		return "9"
	}
}

// TypesStructurallyEqual reports whether a and b are the same type,
// ignoring any difference in how they were constructed.
func TypesStructurallyEqual(a, b Type) bool {
	switch av := a.(type) {
	case ClassType:
		bv, ok := b.(ClassType)
		return ok && av.Sym == bv.Sym
	case AppliedType:
		bv, ok := b.(AppliedType)
		if !ok || av.Sym != bv.Sym || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !TypesStructurallyEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case UnionType:
		bv, ok := b.(UnionType)
		return ok && sameMemberSet(av.Members, bv.Members)
	case IntersectionType:
		bv, ok := b.(IntersectionType)
		return ok && sameMemberSet(av.Members, bv.Members)
	case LiteralType:
		bv, ok := b.(LiteralType)
		if !ok || av.Kind != bv.Kind {
			return false
		}
		switch av.Kind {
		case LiteralInt:
			return av.IntVal == bv.IntVal
		case LiteralFloat:
			return av.FloatVal == bv.FloatVal
		case LiteralBool:
			return av.BoolVal == bv.BoolVal
		default:
			return av.StrVal == bv.StrVal
		}
	case SelfType:
		_, ok := b.(SelfType)
		return ok
	case TypeVar:
		bv, ok := b.(TypeVar)
		return ok && av.Sym == bv.Sym
	case specialType:
		bv, ok := b.(specialType)
		return ok && av.which == bv.which
	default:
		return false
	}
}

func sameMemberSet(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for i, y := range b {
			if !used[i] && TypesStructurallyEqual(x, y) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
