package osfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specFor(t *testing.T, location string) *pathspec.PathSpec {
	t.Helper()
	ps, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": location})
	require.NoError(t, err)
	return ps
}

func TestGetFileEntryReadsFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	fs := New()
	entry, err := fs.GetFileEntryByPathSpec(specFor(t, path))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsFile())

	obj, err := entry.GetFileObject("")
	require.NoError(t, err)
	defer obj.Close()

	buf := make([]byte, 11)
	n, err := obj.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestGetFileEntryMissingReturnsNil(t *testing.T) {
	fs := New()
	entry, err := fs.GetFileEntryByPathSpec(specFor(t, filepath.Join(t.TempDir(), "nope")))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSubFileEntriesListsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	fs := New()
	entry, err := fs.GetFileEntryByPathSpec(specFor(t, dir))
	require.NoError(t, err)
	assert.True(t, entry.IsDirectory())

	sub, err := entry.SubFileEntries()
	require.NoError(t, err)
	children, err := sub.Entries()
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestGetParentFileEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	fs := New()
	entry, err := fs.GetFileEntryByPathSpec(specFor(t, path))
	require.NoError(t, err)

	parent, err := entry.GetParentFileEntry()
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.True(t, parent.IsDirectory())
}
