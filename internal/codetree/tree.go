// Package codetree holds the symbol space of one extraction run: every class from
// the primary archive and from each library archive, keyed by internal name and
// tagged with where it came from.
//
// The first registration of a name wins, both for the record and its origin tag.
// Load the primary archive before any library so primary classes always take
// precedence.
package codetree

import (
	"context"
	"sort"
	"sync"

	"github.com/mvp-joe/jarmeta/internal/classfile"
)

// Origin tags a class with the kind of archive it was loaded from.
type Origin int

const (
	// OriginPrimary marks classes of the archive being described.
	OriginPrimary Origin = iota
	// OriginLibrary marks classes loaded only to resolve references.
	OriginLibrary
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginPrimary:
		return "primary"
	case OriginLibrary:
		return "library"
	default:
		return "unknown"
	}
}

type entry struct {
	info    *classfile.ClassInfo
	origin  Origin
	archive string
}

// Tree is the symbol space. It is safe for concurrent use, but registration
// order determines precedence, so callers that care about determinism must
// register from a single goroutine (LoadLibraries does).
type Tree struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cache   ArchiveCache
	stats   LoadStats
	digests map[string]string // primary archive path -> SHA-256 hex
}

// LoadStats counts what a Tree has registered so far.
type LoadStats struct {
	Archives       int
	PrimaryClasses int
	LibraryClasses int
	Shadowed       int // names already registered by an earlier archive
}

// Option configures a Tree.
type Option func(*Tree)

// WithCache reuses parsed library archives across runs.
// Primary archives are never cached because their records get cleaned in place.
func WithCache(c ArchiveCache) Option {
	return func(t *Tree) {
		t.cache = c
	}
}

// New creates an empty Tree.
func New(opts ...Option) *Tree {
	t := &Tree{entries: make(map[string]*entry), digests: make(map[string]string)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load parses the archive at path and registers its classes with origin.
func (t *Tree) Load(ctx context.Context, path string, origin Origin) error {
	classes, digest, err := t.readArchive(ctx, path, origin)
	if err != nil {
		return err
	}
	t.register(path, origin, classes)
	if digest != "" {
		t.mu.Lock()
		t.digests[path] = digest
		t.mu.Unlock()
	}
	return nil
}

// Digest returns the SHA-256 hex digest of the primary archive loaded from
// path, computed over the same bytes its classes were parsed from.
func (t *Tree) Digest(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.digests[path]
	return d, ok
}

// register adds classes under origin, keeping any existing registration.
func (t *Tree) register(archive string, origin Origin, classes []*classfile.ClassInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Archives++
	for _, info := range classes {
		if _, exists := t.entries[info.Name]; exists {
			t.stats.Shadowed++
			continue
		}
		t.entries[info.Name] = &entry{info: info, origin: origin, archive: archive}
		if origin == OriginPrimary {
			t.stats.PrimaryClasses++
		} else {
			t.stats.LibraryClasses++
		}
	}
}

// PrimaryClassNames returns every name tagged OriginPrimary, sorted.
func (t *Tree) PrimaryClassNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, t.stats.PrimaryClasses)
	for name, e := range t.entries {
		if e.origin == OriginPrimary {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ClassInfo returns the structural record registered under name.
func (t *Tree) ClassInfo(name string) (*classfile.ClassInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[name]
	if !ok {
		return nil, false
	}
	return e.info, true
}

// Origin returns the origin tag of name.
func (t *Tree) Origin(name string) (Origin, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[name]
	if !ok {
		return 0, false
	}
	return e.origin, true
}

// Archive returns the path of the archive that registered name.
func (t *Tree) Archive(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[name]
	if !ok {
		return "", false
	}
	return e.archive, true
}

// Len returns the number of registered classes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Stats returns registration counters.
func (t *Tree) Stats() LoadStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}
