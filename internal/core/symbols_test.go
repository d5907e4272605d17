package core

import "testing"

func TestEnterClassAssignsStableRef(t *testing.T) {
	gs := NewGlobalState()
	un := gs.UnfreezeNameTable()
	name := gs.Names.InternConstant("Foo")
	un.Done()

	us := gs.UnfreezeSymbolTable()
	ref := gs.Symbols.EnterClass(&ClassOrModule{Name: name, Kind: KindClass, Members: map[NameRef]SymbolRef{}})
	us.Done()

	if ref.Kind != SymClassOrModule {
		t.Fatalf("expected SymClassOrModule kind, got %v", ref.Kind)
	}
	got := gs.Symbols.Class(ref)
	if got.Name != name {
		t.Fatalf("round-tripped class has wrong name")
	}
}

func TestMethodHasBlockArgOnlyWhenLastArgIsBlock(t *testing.T) {
	m := &Method{
		Arguments: []Argument{
			{Kind: ArgPositional},
			{Kind: ArgBlock},
		},
	}
	if !m.HasBlockArg() {
		t.Fatalf("expected HasBlockArg true when last argument is ArgBlock")
	}

	m2 := &Method{Arguments: []Argument{{Kind: ArgPositional}}}
	if m2.HasBlockArg() {
		t.Fatalf("expected HasBlockArg false with no block argument")
	}
}

func TestRootAndUntypedAreDistinctClasses(t *testing.T) {
	gs := NewGlobalState()
	if gs.Symbols.Root() == gs.Symbols.Untyped() {
		t.Fatalf("root and untyped stub must be distinct symbols")
	}
	root := gs.Symbols.Class(gs.Symbols.Root())
	if root.Kind != KindModule {
		t.Fatalf("root namespace should be a module")
	}
}

func TestSymbolTableCloneIsIndependent(t *testing.T) {
	gs := NewGlobalState()
	un := gs.UnfreezeNameTable()
	name := gs.Names.InternConstant("Foo")
	un.Done()

	us := gs.UnfreezeSymbolTable()
	ref := gs.Symbols.EnterClass(&ClassOrModule{Name: name, Kind: KindClass, Members: map[NameRef]SymbolRef{}})
	us.Done()

	copyGS := gs.DeepCopy()
	uc := copyGS.UnfreezeSymbolTable()
	copyGS.Symbols.Class(ref).Members[name] = ref
	uc.Done()

	if len(gs.Symbols.Class(ref).Members) != 0 {
		t.Fatalf("mutating the copy must not affect the original GlobalState")
	}
}
