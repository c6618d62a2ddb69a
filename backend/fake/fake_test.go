package fake

import (
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specFor(t *testing.T, location string) *pathspec.PathSpec {
	t.Helper()
	ps, err := pathspec.New(dfvfs.TypeFake, nil, map[string]interface{}{"location": location})
	require.NoError(t, err)
	return ps
}

func TestAddFileAndRead(t *testing.T) {
	fs := New()
	fs.AddFile("var/log/syslog", []byte("boot ok"))

	entry, err := fs.GetFileEntryByPathSpec(specFor(t, "/var/log/syslog"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsFile())
	assert.True(t, entry.IsVirtual())
	assert.True(t, entry.IsAllocated())

	obj, err := entry.GetFileObject("")
	require.NoError(t, err)
	buf := make([]byte, 7)
	n, err := obj.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "boot ok", string(buf[:n]))
}

func TestSynthesizedIntermediateDirectory(t *testing.T) {
	fs := New()
	fs.AddFile("var/log/syslog", []byte("x"))

	entry, err := fs.GetFileEntryByPathSpec(specFor(t, "/var"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsDirectory())

	sub, err := entry.SubFileEntries()
	require.NoError(t, err)
	children, err := sub.Entries()
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/var/log", children[0].StringAttr("location"))
}

func TestMissingEntryReturnsNil(t *testing.T) {
	fs := New()
	entry, err := fs.GetFileEntryByPathSpec(specFor(t, "/nope"))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRootEntry(t *testing.T) {
	fs := New()
	fs.AddFile("a.txt", []byte("a"))
	root, err := fs.GetRootFileEntry()
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.True(t, root.IsDirectory())
}
