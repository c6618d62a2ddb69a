package resolver

import (
	"errors"
	"io"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFileObject is a fixed in-memory byte stream that records its own
// close into a shared log, for asserting teardown order.
type fakeFileObject struct {
	vfs.OffsetTracker
	data []byte
	name string
	log  *[]string
}

func (f *fakeFileObject) Read(p []byte) (int, error) {
	off := f.Offset()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	f.Advance(n)
	return n, nil
}

func (f *fakeFileObject) Seek(offset int64, whence int) (int64, error) {
	size, _ := f.Size()
	return f.OffsetTracker.Seek(offset, whence, size)
}

func (f *fakeFileObject) Close() error {
	*f.log = append(*f.log, "close-object:"+f.name)
	return nil
}

func (f *fakeFileObject) Size() (int64, error) { return int64(len(f.data)), nil }

type fakeFileSystem struct {
	vfs.PathHelper
	name string
	log  *[]string
}

func (f *fakeFileSystem) Open(ps *pathspec.PathSpec) error { return nil }
func (f *fakeFileSystem) Close() error {
	*f.log = append(*f.log, "close-fs:"+f.name)
	return nil
}
func (f *fakeFileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	return true, nil
}
func (f *fakeFileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	return nil, nil
}
func (f *fakeFileSystem) GetRootFileEntry() (vfs.FileEntry, error) { return nil, nil }

// osObjHelper serves TypeOS: every path spec opens as a fixed byte blob.
type osObjHelper struct{ log *[]string }

func (h *osObjHelper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeOS }
func (h *osObjHelper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *Context) (vfs.FileObject, error) {
	return &fakeFileObject{data: []byte("hello world"), name: ps.StringAttr("location"), log: h.log}, nil
}

// tarFsHelper serves TypeTAR as a file system: it doesn't actually parse
// its parent, it just records that it was built.
type tarFsHelper struct {
	log  *[]string
	fail bool
}

func (h *tarFsHelper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeTAR }
func (h *tarFsHelper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *Context) (vfs.FileSystem, error) {
	if h.fail {
		return nil, errors.New("boom")
	}
	return &fakeFileSystem{PathHelper: vfs.PathHelper{Separator: "/"}, name: "archive", log: h.log}, nil
}

// tarObjHelper serves TypeTAR as a file object: it opens its own file
// system first (exercising the resolver re-entrancy a real archive
// backend needs) and then returns a per-member stream.
type tarObjHelper struct {
	log  *[]string
	fail bool
}

func (h *tarObjHelper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeTAR }
func (h *tarObjHelper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *Context) (vfs.FileObject, error) {
	if h.fail {
		return nil, errors.New("member not found")
	}
	if _, err := ctx.Resolver.OpenFileSystem(ps, ctx); err != nil {
		return nil, err
	}
	return &fakeFileObject{data: []byte("member"), name: ps.StringAttr("location"), log: h.log}, nil
}

func osSpec(t *testing.T, location string) *pathspec.PathSpec {
	t.Helper()
	ps, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": location})
	require.NoError(t, err)
	return ps
}

func tarSpec(t *testing.T, parent *pathspec.PathSpec, location string) *pathspec.PathSpec {
	t.Helper()
	ps, err := pathspec.New(dfvfs.TypeTAR, parent, map[string]interface{}{"location": location})
	require.NoError(t, err)
	return ps
}

func TestOpenFileObjectCachesByComparable(t *testing.T) {
	var log []string
	r := NewResolver()
	require.NoError(t, r.RegisterFileObjectHelper(&osObjHelper{log: &log}))
	ctx := NewContext(r)

	ps := osSpec(t, "/image.raw")
	o1, err := r.OpenFileObject(ps, ctx)
	require.NoError(t, err)
	o2, err := r.OpenFileObject(ps, ctx)
	require.NoError(t, err)

	assert.Same(t, o1, o2)
	assert.Equal(t, 1, ctx.Entries())
}

func TestOpenFileSystemSharesContainerAcrossMembers(t *testing.T) {
	var log []string
	r := NewResolver()
	require.NoError(t, r.RegisterFileObjectHelper(&osObjHelper{log: &log}))
	require.NoError(t, r.RegisterFileSystemHelper(&tarFsHelper{log: &log}))
	ctx := NewContext(r)

	os1 := osSpec(t, "/image.raw")
	a := tarSpec(t, os1, "/a.txt")
	b := tarSpec(t, os1, "/b.txt")

	fsA, err := r.OpenFileSystem(a, ctx)
	require.NoError(t, err)
	fsB, err := r.OpenFileSystem(b, ctx)
	require.NoError(t, err)

	assert.Same(t, fsA, fsB)
	// One cached OS file object plus one cached TAR file system.
	assert.Equal(t, 2, ctx.Entries())
}

func TestOpenFileObjectRollsBackOnChildFailure(t *testing.T) {
	var log []string
	r := NewResolver()
	require.NoError(t, r.RegisterFileObjectHelper(&osObjHelper{log: &log}))
	require.NoError(t, r.RegisterFileObjectHelper(&tarObjHelper{log: &log, fail: true}))
	ctx := NewContext(r)

	os1 := osSpec(t, "/image.raw")
	member := tarSpec(t, os1, "/missing.txt")

	_, err := r.OpenFileObject(member, ctx)
	require.Error(t, err)
	assert.Equal(t, 0, ctx.Entries())
}

func TestReleaseClosesInReverseInsertionOrder(t *testing.T) {
	var log []string
	r := NewResolver()
	require.NoError(t, r.RegisterFileObjectHelper(&osObjHelper{log: &log}))
	require.NoError(t, r.RegisterFileSystemHelper(&tarFsHelper{log: &log}))
	require.NoError(t, r.RegisterFileObjectHelper(&tarObjHelper{log: &log}))
	ctx := NewContext(r)

	os1 := osSpec(t, "/image.raw")
	member := tarSpec(t, os1, "/a.txt")

	_, err := r.OpenFileObject(member, ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ctx.Entries())

	require.NoError(t, ctx.Release())
	require.Len(t, log, 3)
	assert.Equal(t, "close-object:/a.txt", log[0])
	assert.Equal(t, "close-fs:archive", log[1])
	assert.Equal(t, "close-object:/image.raw", log[2])

	assert.Equal(t, 0, ctx.Entries())
	require.NoError(t, ctx.Release())
}

func TestRegisterFileObjectHelperTwiceIsKeyError(t *testing.T) {
	var log []string
	r := NewResolver()
	require.NoError(t, r.RegisterFileObjectHelper(&osObjHelper{log: &log}))
	err := r.RegisterFileObjectHelper(&osObjHelper{log: &log})
	require.Error(t, err)
	var keyErr *ErrKeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestDeregisterFileSystemHelperUnregisteredIsKeyError(t *testing.T) {
	r := NewResolver()
	err := r.DeregisterFileSystemHelper(dfvfs.TypeTAR)
	require.Error(t, err)
	var keyErr *ErrKeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestOpenFileObjectUnregisteredTypeIndicator(t *testing.T) {
	r := NewResolver()
	ctx := NewContext(r)
	ps := osSpec(t, "/image.raw")
	_, err := r.OpenFileObject(ps, ctx)
	require.Error(t, err)
}
