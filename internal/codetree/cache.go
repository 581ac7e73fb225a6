package codetree

import (
	"fmt"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/jarmeta/internal/classfile"
)

// DefaultCacheArchives bounds how many parsed library archives are kept.
const DefaultCacheArchives = 256

// MemoryCache is an in-process ArchiveCache backed by otter.
type MemoryCache struct {
	cache otter.Cache[ArchiveKey, []*classfile.ClassInfo]
}

// NewMemoryCache creates a cache holding up to capacity archives.
func NewMemoryCache(capacity int) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheArchives
	}
	c, err := otter.MustBuilder[ArchiveKey, []*classfile.ClassInfo](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build archive cache: %w", err)
	}
	return &MemoryCache{cache: c}, nil
}

// Get returns the parsed classes for key.
func (m *MemoryCache) Get(key ArchiveKey) ([]*classfile.ClassInfo, bool) {
	return m.cache.Get(key)
}

// Set stores the parsed classes for key.
func (m *MemoryCache) Set(key ArchiveKey, classes []*classfile.ClassInfo) {
	m.cache.Set(key, classes)
}

// Hits returns how many lookups were served from the cache.
func (m *MemoryCache) Hits() int64 {
	return m.cache.Stats().Hits()
}

// Close releases the cache.
func (m *MemoryCache) Close() {
	m.cache.Close()
}
