// Package cachestore is the on-disk, content-addressed cache spec.md's
// Persisted state section allows: a manifest mapping (file hash, options
// hash) to a cached pass artifact, written under a project's configured
// cache directory. Grounded on the teacher's internal/cache.MetricsCache for
// the key shape (content hash plus a discriminator) and eviction policy
// (bounded entry count, least recently accessed evicted first), but backed by a pelletier/go-toml/v2 manifest
// on disk instead of an in-process sync.Map, since this cache must survive
// process restarts. Store is read-mostly and optional: a Store that fails
// to load or persist degrades to cache misses, never to an error the caller
// must handle specially.
package cachestore

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pelletier/go-toml/v2"
)

const manifestFile = "manifest.toml"

// Entry is one cached artifact's manifest record.
type Entry struct {
	ArtifactPath string    `toml:"artifact_path"`
	CreatedAt    time.Time `toml:"created_at"`
	AccessedAt   time.Time `toml:"accessed_at"`
}

// manifest is the on-disk shape of manifest.toml.
type manifest struct {
	Entries map[string]Entry `toml:"entries"`
}

// Store is a content-addressed cache of pass artifacts under Dir. The zero
// value is not usable; construct with Open.
type Store struct {
	dir        string
	maxEntries int

	mu sync.Mutex
	m  manifest
}

// Open loads dir's manifest.toml, creating dir and an empty manifest if
// either is missing. maxEntries <= 0 means unbounded.
func Open(dir string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, maxEntries: maxEntries, m: manifest{Entries: map[string]Entry{}}}

	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(raw, &s.m); err != nil {
		// A corrupt manifest degrades to an empty cache rather than an
		// unusable Store; every entry just becomes a miss and gets
		// rewritten on the next Put.
		s.m = manifest{Entries: map[string]Entry{}}
	}
	if s.m.Entries == nil {
		s.m.Entries = map[string]Entry{}
	}
	return s, nil
}

// ContentHash hashes a file's bytes for use as Key's fileHash argument.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// OptionsHash hashes the compiler-option knobs (strictness level and any
// other setting that changes pass output) that, together with a file's
// content hash, identify a cached artifact.
func OptionsHash(opts ...string) uint64 {
	h := xxhash.New()
	for _, o := range opts {
		h.Write([]byte(o))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func key(fileHash, optionsHash uint64) string {
	var buf [16]byte
	putHex(buf[:8], fileHash)
	putHex(buf[8:], optionsHash)
	return hex.EncodeToString(buf[:])
}

func putHex(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * (7 - i)))
	}
}

// Lookup reports whether an artifact is cached for (fileHash, optionsHash)
// and, if so, returns its bytes. A missing or unreadable artifact is a
// clean miss, not an error: the caller always has the option to recompute.
func (s *Store) Lookup(fileHash, optionsHash uint64) ([]byte, bool) {
	s.mu.Lock()
	k := key(fileHash, optionsHash)
	entry, ok := s.m.Entries[k]
	if ok {
		entry.AccessedAt = time.Now()
		s.m.Entries[k] = entry
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	data, err := os.ReadFile(entry.ArtifactPath)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put persists data as the cached artifact for (fileHash, optionsHash) and
// records it in the manifest. A failure to persist is reported but leaves
// the Store usable for subsequent calls.
func (s *Store) Put(fileHash, optionsHash uint64, data []byte) error {
	k := key(fileHash, optionsHash)
	path := filepath.Join(s.dir, k+".cache")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	s.mu.Lock()
	s.m.Entries[k] = Entry{ArtifactPath: path, CreatedAt: time.Now(), AccessedAt: time.Now()}
	s.evictLocked()
	s.mu.Unlock()

	return s.save()
}

// evictLocked drops the least-recently-accessed entries once the manifest
// exceeds maxEntries. Caller must hold s.mu.
func (s *Store) evictLocked() {
	if s.maxEntries <= 0 || len(s.m.Entries) <= s.maxEntries {
		return
	}
	type keyed = struct {
		k string
		e Entry
	}
	all := make([]keyed, 0, len(s.m.Entries))
	for k, e := range s.m.Entries {
		all = append(all, keyed{k, e})
	}
	sortByAccessedAt(all)

	excess := len(all) - s.maxEntries
	for i := 0; i < excess; i++ {
		os.Remove(all[i].e.ArtifactPath)
		delete(s.m.Entries, all[i].k)
	}
}

func sortByAccessedAt(all []struct {
	k string
	e Entry
}) {
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].e.AccessedAt.Before(all[j-1].e.AccessedAt); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
}

// save writes the manifest to disk. Callers treat a save failure as
// non-fatal: the cache stays correct in memory for this process even if a
// future process won't see the update.
func (s *Store) save() error {
	s.mu.Lock()
	data, err := toml.Marshal(s.m)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, manifestFile), data, 0644)
}

// Len reports the number of entries currently in the manifest.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m.Entries)
}
