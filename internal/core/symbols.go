package core

// SymbolKind tags which of the disjoint Symbol variants a SymbolRef points at.
type SymbolKind uint8

const (
	SymClassOrModule SymbolKind = iota
	SymMethod
	SymField
	SymStaticField
	SymTypeMember
	SymTypeParameter
)

func (k SymbolKind) String() string {
	switch k {
	case SymClassOrModule:
		return "class_or_module"
	case SymMethod:
		return "method"
	case SymField:
		return "field"
	case SymStaticField:
		return "static_field"
	case SymTypeMember:
		return "type_member"
	case SymTypeParameter:
		return "type_parameter"
	default:
		return "unknown"
	}
}

// SymbolRef is the universal handle: kind plus a dense index into the arena
// for that kind. Equality of two SymbolRefs is reference equality on the
// Symbol they name, per the data model's invariant.
type SymbolRef struct {
	Kind  SymbolKind
	Index uint32
}

// IsZero reports whether r was never assigned by a SymbolTable Enter* call.
func (r SymbolRef) IsZero() bool { return r.Index == 0 }

// ClassKind distinguishes a class from a module (a module cannot be
// instantiated or subclassed as a superclass).
type ClassKind uint8

const (
	KindClass ClassKind = iota
	KindModule
)

// ClassOrModule is the symbol for a class or module definition.
type ClassOrModule struct {
	Ref        SymbolRef
	Owner      SymbolRef // enclosing ClassOrModule, zero for the root
	Name       NameRef
	Kind       ClassKind
	Superclass SymbolRef // zero if unset; only ever a ClassOrModule once resolved
	Mixins     []SymbolRef
	TypeParams []SymbolRef
	Members    map[NameRef]SymbolRef
	Locs       []Loc // one per file the definition is (re)opened in
}

// MethodFlags are the boolean properties a Method symbol can carry.
type MethodFlags uint8

const (
	MethodSelf MethodFlags = 1 << iota
	MethodAbstract
	MethodOverridable
	MethodRewriterSynthesized
	MethodFinal
)

func (f MethodFlags) Has(bit MethodFlags) bool { return f&bit != 0 }

// ArgKind distinguishes the shape of one method argument.
type ArgKind uint8

const (
	ArgPositional ArgKind = iota
	ArgOptional
	ArgRest
	ArgKeyword
	ArgKeywordOptional
	ArgBlock
	ArgShadow
)

// Argument describes one entry in a Method's argument list.
type Argument struct {
	Name NameRef
	Kind ArgKind
	Type TypeRef // Untyped if not annotated
	Loc  Loc
}

// Method is the symbol for a method definition. Invariant: if Arguments'
// last element has Kind == ArgBlock, the method accepts a block; at most one
// ArgBlock may appear, and only as the last argument.
type Method struct {
	Ref       SymbolRef
	Owner     SymbolRef // always a ClassOrModule
	Name      NameRef
	Arguments []Argument
	Result    TypeRef
	Flags     MethodFlags
	Locs      []Loc
}

// HasBlockArg reports whether the method's last argument is a block arg.
func (m *Method) HasBlockArg() bool {
	return len(m.Arguments) > 0 && m.Arguments[len(m.Arguments)-1].Kind == ArgBlock
}

// FieldFlags are the boolean properties a Field/StaticField symbol can carry.
type FieldFlags uint8

const (
	FieldExported FieldFlags = 1 << iota
	FieldStatic
)

// Field is the symbol for an instance field.
type Field struct {
	Ref     SymbolRef
	Owner   SymbolRef
	Name    NameRef
	Declared TypeRef
	Flags   FieldFlags
	Loc     Loc
}

// StaticField is the symbol for a constant assignment (`X = ...`) scoped to
// an enclosing class or module.
type StaticField struct {
	Ref      SymbolRef
	Owner    SymbolRef
	Name     NameRef
	Declared TypeRef
	Flags    FieldFlags
	Loc      Loc
}

// Variance is the declared variance of a TypeMember/TypeParameter.
type Variance uint8

const (
	VarianceInvariant Variance = iota
	VarianceCovariant
	VarianceContravariant
)

// TypeMember is the symbol for a `type_member`-style generic slot on a class.
type TypeMember struct {
	Ref      SymbolRef
	Owner    SymbolRef
	Name     NameRef
	Variance Variance
	Upper    TypeRef
	Lower    TypeRef
	Loc      Loc
}

// TypeParameter is the symbol for a generic method's type parameter.
type TypeParameter struct {
	Ref      SymbolRef
	Owner    SymbolRef
	Name     NameRef
	Variance Variance
	Upper    TypeRef
	Lower    TypeRef
	Loc      Loc
}

// SymbolTable owns one dense arena per SymbolKind. Mutation is only valid
// while the caller holds the GlobalState's symbol-table unfreeze capability;
// the table itself does not enforce this (GlobalState does), matching the
// "linear capability" design note.
type SymbolTable struct {
	classes    []*ClassOrModule
	methods    []*Method
	fields     []*Field
	staticFlds []*StaticField
	typeMems   []*TypeMember
	typeParams []*TypeParameter

	// rootRef is the ClassOrModule representing the top-level namespace.
	rootRef SymbolRef
	// untypedRef is the stub ClassOrModule substituted for unresolved
	// constants so downstream passes don't cascade.
	untypedRef SymbolRef
}

// NewSymbolTable creates a table pre-populated with the root namespace and
// the untyped stub symbol.
func NewSymbolTable(rootName, untypedName NameRef) *SymbolTable {
	st := &SymbolTable{
		classes:    []*ClassOrModule{nil},
		methods:    []*Method{nil},
		fields:     []*Field{nil},
		staticFlds: []*StaticField{nil},
		typeMems:   []*TypeMember{nil},
		typeParams: []*TypeParameter{nil},
	}
	st.rootRef = st.EnterClass(&ClassOrModule{Name: rootName, Kind: KindModule, Members: map[NameRef]SymbolRef{}})
	st.untypedRef = st.EnterClass(&ClassOrModule{Name: untypedName, Kind: KindClass, Members: map[NameRef]SymbolRef{}})
	return st
}

// Root returns the SymbolRef for the top-level namespace.
func (st *SymbolTable) Root() SymbolRef { return st.rootRef }

// Untyped returns the SymbolRef for the stub "untyped" class used in place
// of unresolved constants.
func (st *SymbolTable) Untyped() SymbolRef { return st.untypedRef }

// EnterClass appends c to the class arena and returns its new SymbolRef,
// setting c.Ref to match.
func (st *SymbolTable) EnterClass(c *ClassOrModule) SymbolRef {
	ref := SymbolRef{Kind: SymClassOrModule, Index: uint32(len(st.classes))}
	c.Ref = ref
	st.classes = append(st.classes, c)
	return ref
}

// EnterMethod appends m to the method arena.
func (st *SymbolTable) EnterMethod(m *Method) SymbolRef {
	ref := SymbolRef{Kind: SymMethod, Index: uint32(len(st.methods))}
	m.Ref = ref
	st.methods = append(st.methods, m)
	return ref
}

// EnterField appends f to the field arena.
func (st *SymbolTable) EnterField(f *Field) SymbolRef {
	ref := SymbolRef{Kind: SymField, Index: uint32(len(st.fields))}
	f.Ref = ref
	st.fields = append(st.fields, f)
	return ref
}

// EnterStaticField appends f to the static-field arena.
func (st *SymbolTable) EnterStaticField(f *StaticField) SymbolRef {
	ref := SymbolRef{Kind: SymStaticField, Index: uint32(len(st.staticFlds))}
	f.Ref = ref
	st.staticFlds = append(st.staticFlds, f)
	return ref
}

// EnterTypeMember appends t to the type-member arena.
func (st *SymbolTable) EnterTypeMember(t *TypeMember) SymbolRef {
	ref := SymbolRef{Kind: SymTypeMember, Index: uint32(len(st.typeMems))}
	t.Ref = ref
	st.typeMems = append(st.typeMems, t)
	return ref
}

// EnterTypeParameter appends t to the type-parameter arena.
func (st *SymbolTable) EnterTypeParameter(t *TypeParameter) SymbolRef {
	ref := SymbolRef{Kind: SymTypeParameter, Index: uint32(len(st.typeParams))}
	t.Ref = ref
	st.typeParams = append(st.typeParams, t)
	return ref
}

func (st *SymbolTable) Class(ref SymbolRef) *ClassOrModule   { return st.classes[ref.Index] }
func (st *SymbolTable) Method(ref SymbolRef) *Method         { return st.methods[ref.Index] }
func (st *SymbolTable) Field(ref SymbolRef) *Field           { return st.fields[ref.Index] }
func (st *SymbolTable) StaticField(ref SymbolRef) *StaticField { return st.staticFlds[ref.Index] }
func (st *SymbolTable) TypeMember(ref SymbolRef) *TypeMember { return st.typeMems[ref.Index] }
func (st *SymbolTable) TypeParam(ref SymbolRef) *TypeParameter { return st.typeParams[ref.Index] }

// AllClasses returns every registered ClassOrModule ref, in entry order.
func (st *SymbolTable) AllClasses() []SymbolRef {
	out := make([]SymbolRef, 0, len(st.classes)-1)
	for i := 1; i < len(st.classes); i++ {
		out = append(out, SymbolRef{Kind: SymClassOrModule, Index: uint32(i)})
	}
	return out
}

func (st *SymbolTable) clone() *SymbolTable {
	out := &SymbolTable{
		rootRef:    st.rootRef,
		untypedRef: st.untypedRef,
		classes:    make([]*ClassOrModule, len(st.classes)),
		methods:    make([]*Method, len(st.methods)),
		fields:     make([]*Field, len(st.fields)),
		staticFlds: make([]*StaticField, len(st.staticFlds)),
		typeMems:   make([]*TypeMember, len(st.typeMems)),
		typeParams: make([]*TypeParameter, len(st.typeParams)),
	}
	for i, c := range st.classes {
		if c == nil {
			continue
		}
		cp := *c
		cp.Members = make(map[NameRef]SymbolRef, len(c.Members))
		for k, v := range c.Members {
			cp.Members[k] = v
		}
		cp.Mixins = append([]SymbolRef(nil), c.Mixins...)
		cp.TypeParams = append([]SymbolRef(nil), c.TypeParams...)
		cp.Locs = append([]Loc(nil), c.Locs...)
		out.classes[i] = &cp
	}
	for i, m := range st.methods {
		if m == nil {
			continue
		}
		cp := *m
		cp.Arguments = append([]Argument(nil), m.Arguments...)
		cp.Locs = append([]Loc(nil), m.Locs...)
		out.methods[i] = &cp
	}
	for i, f := range st.fields {
		if f == nil {
			continue
		}
		cp := *f
		out.fields[i] = &cp
	}
	for i, f := range st.staticFlds {
		if f == nil {
			continue
		}
		cp := *f
		out.staticFlds[i] = &cp
	}
	for i, t := range st.typeMems {
		if t == nil {
			continue
		}
		cp := *t
		out.typeMems[i] = &cp
	}
	for i, t := range st.typeParams {
		if t == nil {
			continue
		}
		cp := *t
		out.typeParams[i] = &cp
	}
	return out
}
