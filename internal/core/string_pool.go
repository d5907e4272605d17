package core

import "sync"

// StringPool provides centralized, deduplicated string storage. Every Name's
// text is interned here (by NameTable) so name equality checks anywhere in
// the pipeline reduce to an integer comparison; source file text is not
// pooled.
//
// Adapted from the teacher's internal/core/string_pool.go: that version
// keyed pooled strings by an atomic counter plus a map (so ids were sparse
// and unordered) and additionally tracked sub-string StringRanges for
// grep-style line slicing. Names are never sliced here —
// only interned whole — so this version uses a dense, zero-based slice
// (id == index) and drops the range machinery; per-file line ranges move to
// core/loc.go's LineIndex, which is the thing that actually needs them.
type StringPool struct {
	mu      sync.RWMutex
	strings []string
	lookup  map[string]uint32
}

// NewStringPool creates an empty pool. Index 0 is reserved for the empty
// string so a zero-valued id can mean "unset".
func NewStringPool() *StringPool {
	return &StringPool{
		strings: []string{""},
		lookup:  map[string]uint32{"": 0},
	}
}

// Intern returns the stable id for s, adding it to the pool if necessary.
func (p *StringPool) Intern(s string) uint32 {
	p.mu.RLock()
	if id, ok := p.lookup[s]; ok {
		p.mu.RUnlock()
		return id
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.lookup[s]; ok {
		return id
	}
	id := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.lookup[s] = id
	return id
}

// Get returns the string for id, or ("", false) if id is out of range.
func (p *StringPool) Get(id uint32) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(id) >= len(p.strings) {
		return "", false
	}
	return p.strings[id], true
}

// Len returns the number of distinct interned strings, including the
// reserved empty string at index 0.
func (p *StringPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.strings)
}

// clone returns a deep, independent copy of the pool, used by
// GlobalState.DeepCopy before a cancellable slow path mutates it.
func (p *StringPool) clone() *StringPool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := &StringPool{
		strings: make([]string, len(p.strings)),
		lookup:  make(map[string]uint32, len(p.lookup)),
	}
	copy(out.strings, p.strings)
	for k, v := range p.lookup {
		out.lookup[k] = v
	}
	return out
}
