package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/jarmeta/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for output:
// - Write creates parent directories and writes indented JSON with a trailing newline
// - Write replaces an existing file and leaves no temp files behind
// - Write to "-" goes to the given stdout writer and creates no file
// - Read decodes what Write produced
// - A failed write keeps the previous file intact

func dataset(t *testing.T, target string) *metadata.SourceMetadataSet {
	t.Helper()
	set, err := metadata.Assemble(metadata.DefaultSpecVersion, target, []metadata.ClassMetadata{
		{Name: "net/example/A", InnerClasses: []metadata.ClassMetadata{{Name: "net/example/A$B", Owner: "net/example/A"}}},
	})
	require.NoError(t, err)
	return set
}

func TestWrite_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "build", "extract", "metadata.json")

	require.NoError(t, Write(dataset(t, "1.20.1"), path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("{\n  \"specVersion\": \"1.0.0\"")))
	assert.True(t, bytes.HasSuffix(data, []byte("}\n")))

	require.NoError(t, Write(dataset(t, "1.20.2"), path, nil))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "1.20.2", got.TargetVersion())
	assert.Equal(t, 2, got.Count())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "metadata.json", entries[0].Name())
}

func TestWrite_Stdout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(dataset(t, "1.20.1"), Stdout, &buf))

	expected, err := Encode(dataset(t, "1.20.1"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), buf.String())

	_, err = os.Stat(Stdout)
	assert.True(t, os.IsNotExist(err))
}

func TestWrite_FailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	require.NoError(t, Write(dataset(t, "1.20.1"), path, nil))

	// a directory in place of the parent makes the write fail
	blocked := filepath.Join(dir, "metadata.json", "nested.json")
	assert.Error(t, WriteFileAtomic(blocked, []byte("{}")))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "1.20.1", got.TargetVersion())
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "noversion.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"specVersion":"1.0.0","classes":[]}`), 0644))
	_, err = Read(path)
	assert.ErrorIs(t, err, metadata.ErrMissingVersion)
}
