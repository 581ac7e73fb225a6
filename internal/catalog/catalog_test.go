package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/jarmeta/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for catalog:
// - Open creates the file, its directory and the schema, and reopens cleanly
// - Add stores counts, versions, the primary archive digest and a uuid id
// - List returns entries newest first
// - Lookup resolves ids first, then the newest entry for a target version
// - Load decodes the stored dataset
// - Unknown references return ErrNotFound
// - Add refuses an entry without a primary archive digest

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database shared
	db.SetMaxOpenConns(1)

	c, err := open(db)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// tick makes the catalog clock advance one second per call.
func tick(c *Catalog) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	c.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

const jarPath = "/work/versions/1.20.1/1.20.1.jar"

func digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func dataset(t *testing.T, target string, names ...string) *metadata.SourceMetadataSet {
	t.Helper()
	roots := make([]metadata.ClassMetadata, 0, len(names))
	for _, name := range names {
		roots = append(roots, metadata.ClassMetadata{
			Name:         name,
			InnerClasses: []metadata.ClassMetadata{{Name: name + "$Inner", Owner: name}},
		})
	}
	set, err := metadata.Assemble(metadata.DefaultSpecVersion, target, roots)
	require.NoError(t, err)
	return set
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".jarmeta", "catalog.db")
	c, err := Open(path)
	require.NoError(t, err)

	version, err := GetSchemaVersion(c.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	_, err = c.Add(context.Background(), dataset(t, "1.20.1", "a/A"), jarPath, digest("jar"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAdd_RecordsEntry(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	tick(c)
	entry, err := c.Add(context.Background(), dataset(t, "1.20.1", "a/A", "a/B"), jarPath, digest("primary archive bytes"))
	require.NoError(t, err)

	_, err = uuid.Parse(entry.ID)
	assert.NoError(t, err)
	assert.Equal(t, "1.0.0", entry.SpecVersion)
	assert.Equal(t, "1.20.1", entry.TargetVersion)
	assert.Equal(t, jarPath, entry.PrimaryPath)
	assert.Equal(t, digest("primary archive bytes"), entry.PrimarySHA256)
	assert.Equal(t, 2, entry.Roots)
	assert.Equal(t, 4, entry.Classes)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC), entry.CreatedAt)

	stored, err := c.Lookup(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry, stored)
}

func TestList_NewestFirst(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	tick(c)
	ctx := context.Background()

	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var ids []string
	for _, target := range []string{"1.19.4", "1.20.1", "1.20.2"} {
		entry, err := c.Add(ctx, dataset(t, target, "a/A"), jarPath, digest("jar"))
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	entries, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ids[2], entries[0].ID)
	assert.Equal(t, ids[1], entries[1].ID)
	assert.Equal(t, ids[0], entries[2].ID)
}

func TestLookup_ByVersionPicksNewest(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	tick(c)
	ctx := context.Background()

	_, err := c.Add(ctx, dataset(t, "1.20.1", "a/Old"), jarPath, digest("jar"))
	require.NoError(t, err)
	newest, err := c.Add(ctx, dataset(t, "1.20.1", "a/New", "a/Other"), jarPath, digest("jar"))
	require.NoError(t, err)
	_, err = c.Add(ctx, dataset(t, "1.20.2", "a/Next"), jarPath, digest("jar"))
	require.NoError(t, err)

	entry, set, err := c.Load(ctx, "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, newest.ID, entry.ID)
	assert.Equal(t, "1.20.1", set.TargetVersion())
	assert.Equal(t, 2, set.Roots())
	found, ok := set.Find("a/New$Inner")
	require.True(t, ok)
	assert.Equal(t, "a/New", found.Owner)
}

func TestLookup_NotFound(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Lookup(ctx, "1.20.1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = c.Load(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdd_MissingDigest(t *testing.T) {
	t.Parallel()

	c := newTestCatalog(t)
	_, err := c.Add(context.Background(), dataset(t, "1.20.1", "a/A"), jarPath, "")
	assert.ErrorIs(t, err, ErrMissingDigest)

	entries, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
