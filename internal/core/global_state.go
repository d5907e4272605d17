package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// rootConstantName / untypedConstantName are reserved constant names every GlobalState seeds
// its symbol table with.
const (
	rootConstantName    = "<root>"
	untypedConstantName = "<untyped>"
)

// GlobalState is the process-wide, versioned store every pass reads and
// (within an unfreeze scope) writes. It is owned by exactly one goroutine at
// a time: the typechecker thread during normal operation, or a worker that
// was handed a *copy* produced by DeepCopy for a cancellable slow path.
type GlobalState struct {
	Strings *StringPool
	Names   *NameTable
	Symbols *SymbolTable
	Files   *FileTable
	Errors  *ErrorQueue

	epoch      atomic.Int64
	cancelled  atomic.Bool

	freezeMu     sync.Mutex
	namesFrozen  bool
	symsFrozen   bool
	filesFrozen  bool
}

// NewGlobalState creates a fresh, empty GlobalState with the root namespace
// and untyped stub symbol already registered, all tables frozen (the
// default, read-only state passes must explicitly Unfreeze out of).
func NewGlobalState() *GlobalState {
	strings := NewStringPool()
	names := NewNameTable(strings)
	root := names.InternConstant(rootConstantName)
	untyped := names.InternConstant(untypedConstantName)
	gs := &GlobalState{
		Strings:     strings,
		Names:       names,
		Symbols:     NewSymbolTable(root, untyped),
		Files:       NewFileTable(),
		Errors:      NewErrorQueue(),
		namesFrozen: true,
		symsFrozen:  true,
		filesFrozen: true,
	}
	return gs
}

// Epoch returns the current committed-edit counter.
func (gs *GlobalState) Epoch() int64 { return gs.epoch.Load() }

// BumpEpoch increments and returns the new epoch, called exactly once per
// committed edit (fast-path or slow-path).
func (gs *GlobalState) BumpEpoch() int64 { return gs.epoch.Add(1) }

// RequestCancel sets the cooperative cancellation flag a running slow path
// checks at its preemption checkpoints.
func (gs *GlobalState) RequestCancel() { gs.cancelled.Store(true) }

// ClearCancel resets the cancellation flag, done once a new slow path begins.
func (gs *GlobalState) ClearCancel() { gs.cancelled.Store(false) }

// CancelRequested reports whether a preempting edit has asked the running
// slow path to abort.
func (gs *GlobalState) CancelRequested() bool { return gs.cancelled.Load() }

// Unfreeze is the linear capability returned by an Unfreeze* call: holding
// it authorizes mutation of exactly one table, and Done must be called
// before the pass that acquired it returns (every exit path, including
// error returns, must release it — typically a deferred Done right after
// the Unfreeze call).
type Unfreeze struct {
	gs      *GlobalState
	table   tableKind
	release func()
}

// Done re-freezes the table this capability guards. Calling Done twice is a
// programming error and panics, the same way double-closing a channel does,
// because it signals the pass's scope discipline is broken.
func (u *Unfreeze) Done() {
	if u.release == nil {
		panic(fmt.Sprintf("core: Unfreeze(%s) already released", u.table))
	}
	u.release()
	u.release = nil
}

type tableKind uint8

const (
	tableNames tableKind = iota
	tableSymbols
	tableFiles
)

func (k tableKind) String() string {
	switch k {
	case tableNames:
		return "names"
	case tableSymbols:
		return "symbols"
	default:
		return "files"
	}
}

// UnfreezeNameTable grants mutation rights over the name table. Namer holds
// this (together with UnfreezeSymbolTable) for the duration of one file's
// traversal.
func (gs *GlobalState) UnfreezeNameTable() *Unfreeze {
	gs.freezeMu.Lock()
	gs.namesFrozen = false
	gs.freezeMu.Unlock()
	return &Unfreeze{gs: gs, table: tableNames, release: func() {
		gs.freezeMu.Lock()
		gs.namesFrozen = true
		gs.freezeMu.Unlock()
	}}
}

// UnfreezeSymbolTable grants mutation rights over the symbol table.
func (gs *GlobalState) UnfreezeSymbolTable() *Unfreeze {
	gs.freezeMu.Lock()
	gs.symsFrozen = false
	gs.freezeMu.Unlock()
	return &Unfreeze{gs: gs, table: tableSymbols, release: func() {
		gs.freezeMu.Lock()
		gs.symsFrozen = true
		gs.freezeMu.Unlock()
	}}
}

// UnfreezeFileTable grants mutation rights over the file table.
func (gs *GlobalState) UnfreezeFileTable() *Unfreeze {
	gs.freezeMu.Lock()
	gs.filesFrozen = false
	gs.freezeMu.Unlock()
	return &Unfreeze{gs: gs, table: tableFiles, release: func() {
		gs.freezeMu.Lock()
		gs.filesFrozen = true
		gs.freezeMu.Unlock()
	}}
}

// NamesFrozen, SymbolsFrozen and FilesFrozen report the current freeze state,
// so worker-pool code can assert it is not mutating a frozen table.
func (gs *GlobalState) NamesFrozen() bool {
	gs.freezeMu.Lock()
	defer gs.freezeMu.Unlock()
	return gs.namesFrozen
}

func (gs *GlobalState) SymbolsFrozen() bool {
	gs.freezeMu.Lock()
	defer gs.freezeMu.Unlock()
	return gs.symsFrozen
}

func (gs *GlobalState) FilesFrozen() bool {
	gs.freezeMu.Lock()
	defer gs.freezeMu.Unlock()
	return gs.filesFrozen
}

// DeepCopy snapshots gs into a fully independent GlobalState, for the slow
// path to mutate and either commit (swap in) or discard (on cancellation).
// Freeze state is not copied: the copy always starts fully frozen, since the
// slow path immediately re-acquires the unfreeze scopes it needs.
func (gs *GlobalState) DeepCopy() *GlobalState {
	newStrings := gs.Strings.clone()
	out := &GlobalState{
		Strings:     newStrings,
		Names:       gs.Names.clone(newStrings),
		Symbols:     gs.Symbols.clone(),
		Files:       gs.Files.clone(),
		Errors:      gs.Errors.clone(),
		namesFrozen: true,
		symsFrozen:  true,
		filesFrozen: true,
	}
	out.epoch.Store(gs.epoch.Load())
	return out
}
