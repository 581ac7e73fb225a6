package codetree

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mvp-joe/jarmeta/internal/classfile"
	"github.com/mvp-joe/jarmeta/internal/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Tree:
// - Load registers every class entry of an archive with the given origin
// - META-INF entries, module-info and non-class entries are skipped
// - First registration wins: a library redefining a primary class stays primary
// - Re-loading the primary after libraries never flips primary names
// - PrimaryClassNames is sorted and excludes library names
// - LoadLibraries registers in sorted path order regardless of argument order
// - LoadLibraries reports progress for each archive
// - Missing archives and corrupt class entries fail with *ArchiveError, nothing registered
// - Library archives are served from the cache when unchanged; primary never is
// - Cancelled context aborts loading
// - Digest is the SHA-256 of the primary bytes parsed; libraries have none

func writeJar(t *testing.T, dir, name string, classes ...classfiletest.Class) string {
	t.Helper()
	path := filepath.Join(dir, name)
	classfiletest.WriteJar(t, path, classes, nil)
	return path
}

func TestTree_LoadPrimary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "client.jar")
	classfiletest.WriteJar(t, path, []classfiletest.Class{
		{Name: "net/example/B"},
		{Name: "net/example/A"},
	}, map[string][]byte{
		"META-INF/versions/17/net/example/A.class": classfiletest.Class{Name: "net/example/A"}.Bytes(),
		"module-info.class":                        []byte("not parsed"),
		"assets/readme.txt":                        []byte("hello"),
	})

	tree := New()
	require.NoError(t, tree.Load(context.Background(), path, OriginPrimary))

	assert.Equal(t, []string{"net/example/A", "net/example/B"}, tree.PrimaryClassNames())
	assert.Equal(t, 2, tree.Len())

	info, ok := tree.ClassInfo("net/example/A")
	require.True(t, ok)
	assert.Equal(t, "net/example/A", info.Name)

	origin, ok := tree.Origin("net/example/B")
	require.True(t, ok)
	assert.Equal(t, OriginPrimary, origin)

	archive, ok := tree.Archive("net/example/B")
	require.True(t, ok)
	assert.Equal(t, path, archive)

	_, ok = tree.ClassInfo("net/example/Missing")
	assert.False(t, ok)
}

func TestTree_FirstRegistrationWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	primary := writeJar(t, dir, "client.jar",
		classfiletest.Class{Name: "net/example/Shared", Super: "net/example/FromPrimary"},
		classfiletest.Class{Name: "net/example/Own"},
	)
	library := writeJar(t, dir, "lib.jar",
		classfiletest.Class{Name: "net/example/Shared", Super: "net/example/FromLibrary"},
		classfiletest.Class{Name: "org/lib/Util"},
	)

	ctx := context.Background()
	tree := New()
	require.NoError(t, tree.Load(ctx, primary, OriginPrimary))
	require.NoError(t, tree.LoadLibraries(ctx, []string{library}, LibraryOptions{}))

	origin, _ := tree.Origin("net/example/Shared")
	assert.Equal(t, OriginPrimary, origin)
	info, _ := tree.ClassInfo("net/example/Shared")
	assert.Equal(t, "net/example/FromPrimary", info.SuperName)

	origin, _ = tree.Origin("org/lib/Util")
	assert.Equal(t, OriginLibrary, origin)

	assert.Equal(t, []string{"net/example/Own", "net/example/Shared"}, tree.PrimaryClassNames())

	stats := tree.Stats()
	assert.Equal(t, 2, stats.Archives)
	assert.Equal(t, 2, stats.PrimaryClasses)
	assert.Equal(t, 1, stats.LibraryClasses)
	assert.Equal(t, 1, stats.Shadowed)
}

func TestTree_ReloadPrimaryIsStable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	primary := writeJar(t, dir, "client.jar", classfiletest.Class{Name: "net/example/A"})
	library := writeJar(t, dir, "lib.jar", classfiletest.Class{Name: "net/example/A"}, classfiletest.Class{Name: "org/lib/B"})

	ctx := context.Background()
	tree := New()
	require.NoError(t, tree.Load(ctx, primary, OriginPrimary))
	require.NoError(t, tree.Load(ctx, primary, OriginPrimary))
	require.NoError(t, tree.LoadLibraries(ctx, []string{library}, LibraryOptions{}))

	assert.Equal(t, []string{"net/example/A"}, tree.PrimaryClassNames())

	// a later primary load cannot claim names libraries already registered
	require.NoError(t, tree.Load(ctx, library, OriginPrimary))
	origin, _ := tree.Origin("org/lib/B")
	assert.Equal(t, OriginLibrary, origin)
	assert.Equal(t, []string{"net/example/A"}, tree.PrimaryClassNames())
}

type recordingProgress struct {
	mu     sync.Mutex
	loaded map[string]int
}

func (r *recordingProgress) OnLibraryLoaded(path string, classes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[filepath.Base(path)] = classes
}

func TestTree_LoadLibraries_DeterministicOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeJar(t, dir, "a.jar", classfiletest.Class{Name: "org/lib/Dup", Super: "org/lib/FromA"})
	b := writeJar(t, dir, "b.jar", classfiletest.Class{Name: "org/lib/Dup", Super: "org/lib/FromB"}, classfiletest.Class{Name: "org/lib/OnlyB"})
	c := writeJar(t, dir, "c.jar")

	progress := &recordingProgress{loaded: make(map[string]int)}
	tree := New()
	require.NoError(t, tree.LoadLibraries(context.Background(), []string{c, b, a}, LibraryOptions{Workers: 3, Progress: progress}))

	info, ok := tree.ClassInfo("org/lib/Dup")
	require.True(t, ok)
	assert.Equal(t, "org/lib/FromA", info.SuperName)
	archive, _ := tree.Archive("org/lib/Dup")
	assert.Equal(t, a, archive)

	assert.Empty(t, tree.PrimaryClassNames())
	assert.Equal(t, map[string]int{"a.jar": 1, "b.jar": 2, "c.jar": 0}, progress.loaded)
}

func TestTree_ArchiveErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeJar(t, dir, "good.jar", classfiletest.Class{Name: "org/lib/Good"})

	corrupt := filepath.Join(dir, "corrupt.jar")
	classfiletest.WriteJar(t, corrupt, nil, map[string][]byte{
		"org/lib/Broken.class": {0xCA, 0xFE, 0xBA, 0xBE, 0x00},
	})

	notZip := filepath.Join(dir, "notzip.jar")
	require.NoError(t, os.WriteFile(notZip, []byte("plain text"), 0644))

	ctx := context.Background()

	t.Run("missing primary", func(t *testing.T) {
		t.Parallel()
		err := New().Load(ctx, filepath.Join(dir, "missing.jar"), OriginPrimary)
		var archiveErr *ArchiveError
		require.ErrorAs(t, err, &archiveErr)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("not a zip", func(t *testing.T) {
		t.Parallel()
		err := New().Load(ctx, notZip, OriginPrimary)
		var archiveErr *ArchiveError
		require.ErrorAs(t, err, &archiveErr)
		assert.Equal(t, notZip, archiveErr.Path)
	})

	t.Run("corrupt entry aborts all libraries", func(t *testing.T) {
		t.Parallel()
		tree := New()
		err := tree.LoadLibraries(ctx, []string{good, corrupt}, LibraryOptions{})
		var archiveErr *ArchiveError
		require.ErrorAs(t, err, &archiveErr)
		assert.Equal(t, "org/lib/Broken.class", archiveErr.Entry)
		assert.ErrorIs(t, err, classfile.ErrTruncated)
		assert.Equal(t, 0, tree.Len(), "nothing registered on failure")
	})
}

type mapCache struct {
	mu      sync.Mutex
	entries map[ArchiveKey][]*classfile.ClassInfo
	hits    int
}

func (m *mapCache) Get(key ArchiveKey) ([]*classfile.ClassInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if ok {
		m.hits++
	}
	return v, ok
}

func (m *mapCache) Set(key ArchiveKey, classes []*classfile.ClassInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = classes
}

func TestTree_CacheServesUnchangedLibraries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	primary := writeJar(t, dir, "client.jar", classfiletest.Class{Name: "net/example/A"})
	library := writeJar(t, dir, "lib.jar", classfiletest.Class{Name: "org/lib/B"})
	cache := &mapCache{entries: make(map[ArchiveKey][]*classfile.ClassInfo)}
	ctx := context.Background()

	for run := 0; run < 3; run++ {
		tree := New(WithCache(cache))
		require.NoError(t, tree.Load(ctx, primary, OriginPrimary))
		require.NoError(t, tree.LoadLibraries(ctx, []string{library}, LibraryOptions{}))
		_, ok := tree.ClassInfo("org/lib/B")
		require.True(t, ok)
	}

	assert.Len(t, cache.entries, 1, "only the library archive is cached")
	assert.Equal(t, 2, cache.hits)
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := NewMemoryCache(8)
	require.NoError(t, err)
	defer cache.Close()

	key := ArchiveKey{Path: "/libs/a.jar", Size: 10, ModTime: 42}
	classes := []*classfile.ClassInfo{{Name: "org/lib/A"}}
	cache.Set(key, classes)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, classes, got)

	_, ok = cache.Get(ArchiveKey{Path: "/libs/a.jar", Size: 10, ModTime: 43})
	assert.False(t, ok, "a touched archive is a different key")
}

func TestTree_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeJar(t, dir, "client.jar", classfiletest.Class{Name: "net/example/A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Load(ctx, path, OriginPrimary)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrigin_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "primary", OriginPrimary.String())
	assert.Equal(t, "library", OriginLibrary.String())
	assert.Equal(t, "unknown", Origin(7).String())
}

func TestTree_Digest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	primary := writeJar(t, dir, "client.jar", classfiletest.Class{Name: "net/example/A"})
	library := writeJar(t, dir, "lib.jar", classfiletest.Class{Name: "org/lib/L"})
	data, err := os.ReadFile(primary)
	require.NoError(t, err)

	tree := New()
	ctx := context.Background()
	require.NoError(t, tree.Load(ctx, primary, OriginPrimary))
	require.NoError(t, tree.LoadLibraries(ctx, []string{library}, LibraryOptions{}))

	// rewriting the file after loading does not change what was recorded
	require.NoError(t, os.WriteFile(primary, []byte("replaced"), 0644))

	sum := sha256.Sum256(data)
	digest, ok := tree.Digest(primary)
	require.True(t, ok)
	assert.Equal(t, hex.EncodeToString(sum[:]), digest)

	_, ok = tree.Digest(library)
	assert.False(t, ok)
}
