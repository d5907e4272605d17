package core

import "testing"

func TestTablesStartFrozen(t *testing.T) {
	gs := NewGlobalState()
	if !gs.NamesFrozen() || !gs.SymbolsFrozen() || !gs.FilesFrozen() {
		t.Fatalf("a fresh GlobalState must start with every table frozen")
	}
}

func TestUnfreezeDoneReFreezes(t *testing.T) {
	gs := NewGlobalState()
	u := gs.UnfreezeSymbolTable()
	if gs.SymbolsFrozen() {
		t.Fatalf("symbol table should be unfrozen while the capability is held")
	}
	u.Done()
	if !gs.SymbolsFrozen() {
		t.Fatalf("symbol table should be refrozen after Done")
	}
}

func TestDoubleDonePanics(t *testing.T) {
	gs := NewGlobalState()
	u := gs.UnfreezeNameTable()
	u.Done()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on double Done()")
		}
	}()
	u.Done()
}

func TestIndependentUnfreezeOnDisjointTables(t *testing.T) {
	gs := NewGlobalState()
	u1 := gs.UnfreezeNameTable()
	u2 := gs.UnfreezeSymbolTable()
	if gs.NamesFrozen() || gs.SymbolsFrozen() {
		t.Fatalf("both unfrozen tables should report unfrozen simultaneously")
	}
	u1.Done()
	if gs.NamesFrozen() == false {
		// names refrozen, but symbols still unfrozen until u2.Done()
	}
	if gs.SymbolsFrozen() {
		t.Fatalf("releasing u1 must not refreeze the symbol table")
	}
	u2.Done()
}

func TestDeepCopyIsIndependent(t *testing.T) {
	gs := NewGlobalState()
	u := gs.UnfreezeNameTable()
	gs.Names.InternUtf8("original")
	u.Done()

	cp := gs.DeepCopy()
	uc := cp.UnfreezeNameTable()
	cp.Names.InternUtf8("only-in-copy")
	uc.Done()

	u2 := gs.UnfreezeNameTable()
	before := gs.Strings.Len()
	gs.Names.InternUtf8("still-independent")
	u2.Done()

	if gs.Strings.Len() != before+1 {
		t.Fatalf("original GlobalState string pool should grow independently of the copy")
	}
}

func TestEpochAndCancelFlag(t *testing.T) {
	gs := NewGlobalState()
	if gs.Epoch() != 0 {
		t.Fatalf("fresh GlobalState should start at epoch 0")
	}
	if gs.BumpEpoch() != 1 {
		t.Fatalf("first BumpEpoch should return 1")
	}
	if gs.CancelRequested() {
		t.Fatalf("cancellation flag should start clear")
	}
	gs.RequestCancel()
	if !gs.CancelRequested() {
		t.Fatalf("RequestCancel should set the flag")
	}
	gs.ClearCancel()
	if gs.CancelRequested() {
		t.Fatalf("ClearCancel should clear the flag")
	}
}
