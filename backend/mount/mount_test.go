package mount

import (
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMangleRewritesMountRoot(t *testing.T) {
	m := New()
	image, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/images/case1.raw"})
	require.NoError(t, err)
	m.Mount("case1", image)

	mountRoot, err := pathspec.New(dfvfs.TypeMount, nil, map[string]interface{}{
		"location": "", "mount_point": "case1",
	})
	require.NoError(t, err)
	tarSpec, err := pathspec.New(dfvfs.TypeTAR, mountRoot, map[string]interface{}{"location": "/data.tar"})
	require.NoError(t, err)

	mangled := m.Mangle(tarSpec)
	require.NotNil(t, mangled)
	assert.Equal(t, dfvfs.TypeOS, mangled.GetParent().TypeIndicator())
	assert.Equal(t, "/images/case1.raw", mangled.GetParent().StringAttr("location"))
	assert.Equal(t, dfvfs.TypeTAR, mangled.TypeIndicator())
}

func TestMangleNonMountPassesThrough(t *testing.T) {
	m := New()
	os1, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/a.raw"})
	require.NoError(t, err)
	assert.Same(t, os1, m.Mangle(os1))
}

func TestMangleUnknownMountPassesThrough(t *testing.T) {
	m := New()
	mountRoot, err := pathspec.New(dfvfs.TypeMount, nil, map[string]interface{}{
		"location": "", "mount_point": "missing",
	})
	require.NoError(t, err)
	assert.Same(t, mountRoot, m.Mangle(mountRoot))
}

func TestUnmountRemovesMapping(t *testing.T) {
	m := New()
	image, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/a.raw"})
	require.NoError(t, err)
	m.Mount("case1", image)
	m.Unmount("case1")

	mountRoot, err := pathspec.New(dfvfs.TypeMount, nil, map[string]interface{}{
		"location": "", "mount_point": "case1",
	})
	require.NoError(t, err)
	assert.Same(t, mountRoot, m.Mangle(mountRoot))
}
