package core

import "fmt"

// NameKind distinguishes the three ways a Name can arise.
type NameKind uint8

const (
	// Utf8Name is raw source identifier text, e.g. a method or local name.
	Utf8Name NameKind = iota
	// ConstantName is a name appearing in constant position (uppercase-initial).
	ConstantName
	// UniqueName is a compiler-generated derivative of another name.
	UniqueName
)

func (k NameKind) String() string {
	switch k {
	case Utf8Name:
		return "utf8"
	case ConstantName:
		return "constant"
	case UniqueName:
		return "unique"
	default:
		return "unknown"
	}
}

// UniquenessKind tags why a UniqueName was synthesized.
type UniquenessKind uint8

const (
	// RenameOverload tags a mangled overload/redefinition collision.
	RenameOverload UniquenessKind = iota
	// MangledTemp tags a compiler-introduced temporary (desugar output).
	MangledTemp
	// Singleton tags the name of a class's singleton-class constant.
	Singleton
	// Parser tags a name invented to stand in for a parse-error node.
	Parser
)

// NameRef is an opaque, stable handle to an interned Name, scoped to the
// GlobalState that created it. Two NameRefs are equal iff they name the
// same Name.
type NameRef struct {
	index uint32
}

// IsZero reports whether r is the zero NameRef (never returned by NameTable.Intern*).
func (r NameRef) IsZero() bool { return r.index == 0 }

// uniqueKey identifies a UniqueName's identity beyond its pooled text: the
// same rendered text can be reused for different (original, kind, version)
// triples, so the unique table is keyed on the triple, not the string.
type uniqueKey struct {
	original NameRef
	kind     UniquenessKind
	version  int
}

type nameRecord struct {
	kind     NameKind
	text     uint32 // StringPool id for Utf8Name/ConstantName
	original NameRef
	ukind    UniquenessKind
	version  int
}

// NameTable interns Names for one GlobalState. It never frees an entry:
// Names live for the process lifetime of the GlobalState that owns them.
type NameTable struct {
	strings *StringPool
	records []nameRecord

	utf8Lookup     map[uint32]NameRef
	constLookup    map[uint32]NameRef
	uniqueLookup   map[uniqueKey]NameRef
}

// NewNameTable creates an empty table backed by pool for raw text storage.
func NewNameTable(pool *StringPool) *NameTable {
	nt := &NameTable{
		strings:      pool,
		utf8Lookup:   make(map[uint32]NameRef),
		constLookup:  make(map[uint32]NameRef),
		uniqueLookup: make(map[uniqueKey]NameRef),
	}
	// index 0 is reserved so the zero NameRef is never a real name.
	nt.records = append(nt.records, nameRecord{})
	return nt
}

// InternUtf8 interns s as a Utf8Name, returning the existing ref if present.
func (nt *NameTable) InternUtf8(s string) NameRef {
	sid := nt.strings.Intern(s)
	if ref, ok := nt.utf8Lookup[sid]; ok {
		return ref
	}
	ref := NameRef{index: uint32(len(nt.records))}
	nt.records = append(nt.records, nameRecord{kind: Utf8Name, text: sid})
	nt.utf8Lookup[sid] = ref
	return ref
}

// InternConstant interns s as a ConstantName.
func (nt *NameTable) InternConstant(s string) NameRef {
	sid := nt.strings.Intern(s)
	if ref, ok := nt.constLookup[sid]; ok {
		return ref
	}
	ref := NameRef{index: uint32(len(nt.records))}
	nt.records = append(nt.records, nameRecord{kind: ConstantName, text: sid})
	nt.constLookup[sid] = ref
	return ref
}

// FreshUnique returns the NameRef for (original, kind, version), interning a
// new record the first time that triple is requested so repeated desugar
// passes over idempotent input reuse the same derived name.
func (nt *NameTable) FreshUnique(original NameRef, kind UniquenessKind, version int) NameRef {
	key := uniqueKey{original: original, kind: kind, version: version}
	if ref, ok := nt.uniqueLookup[key]; ok {
		return ref
	}
	ref := NameRef{index: uint32(len(nt.records))}
	nt.records = append(nt.records, nameRecord{kind: UniqueName, original: original, ukind: kind, version: version})
	nt.uniqueLookup[key] = ref
	return ref
}

// Kind returns the NameKind of ref.
func (nt *NameTable) Kind(ref NameRef) NameKind {
	return nt.records[ref.index].kind
}

// ShowRaw renders the human-readable text of ref, following unique-name
// chains back to their originating Utf8Name/ConstantName.
func (nt *NameTable) ShowRaw(ref NameRef) string {
	rec := nt.records[ref.index]
	switch rec.kind {
	case Utf8Name, ConstantName:
		s, _ := nt.strings.Get(rec.text)
		return s
	case UniqueName:
		base := nt.ShowRaw(rec.original)
		return fmt.Sprintf("%s$%s%d", base, uniquenessTag(rec.ukind), rec.version)
	default:
		return "<invalid-name>"
	}
}

func uniquenessTag(k UniquenessKind) string {
	switch k {
	case RenameOverload:
		return "overload"
	case MangledTemp:
		return "tmp"
	case Singleton:
		return "singleton"
	case Parser:
		return "parsererr"
	default:
		return "unk"
	}
}

func (nt *NameTable) clone(newPool *StringPool) *NameTable {
	out := &NameTable{
		strings:      newPool,
		records:      make([]nameRecord, len(nt.records)),
		utf8Lookup:   make(map[uint32]NameRef, len(nt.utf8Lookup)),
		constLookup:  make(map[uint32]NameRef, len(nt.constLookup)),
		uniqueLookup: make(map[uniqueKey]NameRef, len(nt.uniqueLookup)),
	}
	copy(out.records, nt.records)
	for k, v := range nt.utf8Lookup {
		out.utf8Lookup[k] = v
	}
	for k, v := range nt.constLookup {
		out.constLookup[k] = v
	}
	for k, v := range nt.uniqueLookup {
		out.uniqueLookup[k] = v
	}
	return out
}
