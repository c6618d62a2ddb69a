package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeCacheComputesOnce(t *testing.T) {
	calls := 0
	c := NewSizeCache(func() (int64, error) {
		calls++
		return 42, nil
	})
	s1, err := c.Size()
	require.NoError(t, err)
	s2, err := c.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(42), s1)
	assert.Equal(t, int64(42), s2)
	assert.Equal(t, 1, calls)
}

func TestStatCacheComputesOnce(t *testing.T) {
	calls := 0
	c := NewStatCache(func() (*Stat, error) {
		calls++
		return &Stat{Size: 116, Type: TypeFile}, nil
	})
	st1, err := c.Stat()
	require.NoError(t, err)
	st2, err := c.Stat()
	require.NoError(t, err)
	assert.Same(t, st1, st2)
	assert.Equal(t, 1, calls)
}

func TestOffsetTrackerSeek(t *testing.T) {
	var tr OffsetTracker
	off, err := tr.Seek(10, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(10), off)

	off, err = tr.Seek(5, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(15), off)

	off, err = tr.Seek(-10, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(90), off)

	_, err = tr.Seek(-1000, 0, 100)
	require.Error(t, err)
}

func TestBaseVirtualIsAllocated(t *testing.T) {
	b := NewBase(nil, "anon", true, true, func() (*Stat, error) {
		return &Stat{Type: TypeFile, IsAllocated: false}, nil
	})
	assert.True(t, b.IsAllocated())
	assert.True(t, b.IsVirtual())
	assert.True(t, b.IsRoot())
	assert.True(t, b.IsFile())
}

func TestSynthesizeIntermediateDirectoriesRoot(t *testing.T) {
	members := []string{"syslog", "var/log/a.log", "var/log/b.log", "var/cache"}
	children := SynthesizeIntermediateDirectories("", members, "/")
	assert.Equal(t, []string{"syslog", "var"}, children)
}

func TestSynthesizeIntermediateDirectoriesNested(t *testing.T) {
	members := []string{"var/log/a.log", "var/log/b.log", "var/cache"}
	children := SynthesizeIntermediateDirectories("var", members, "/")
	assert.Equal(t, []string{"cache", "log"}, children)
}

func TestPathHelperJoinBasenameDirname(t *testing.T) {
	h := PathHelper{Separator: "/"}
	assert.Equal(t, "/Users/file.txt", h.Join("Users", "file.txt"))
	assert.Equal(t, "file.txt", h.Basename("/Users/file.txt"))
	assert.Equal(t, "/Users", h.Dirname("/Users/file.txt"))
}

func TestPathHelperSegmentAndSuffix(t *testing.T) {
	h := PathHelper{Separator: "/"}
	seg, rest := h.GetPathSegmentAndSuffix("/Users", "/Users/a/b.txt")
	assert.Equal(t, "a", seg)
	assert.Equal(t, "b.txt", rest)
}
