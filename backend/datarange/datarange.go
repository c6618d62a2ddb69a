// Package datarange implements the DATA_RANGE back end: an arbitrary
// [offset, offset+size) slice of a parent file-like object, the building
// block volume-system and embedded-image drivers use to expose one
// partition's or one sub-image's bytes without copying them.
package datarange

import (
	"io"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeDataRange)
	h := &Helper{}
	_ = resolver.Default.RegisterFileObjectHelper(h)
	_ = resolver.Default.RegisterFileSystemHelper(h)
}

// Helper constructs the FileObject and single-entry FileSystem views for
// TypeDataRange.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeDataRange }

// NewFileObject implements resolver.FileObjectHelper.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileObject", dfvfs.ErrMissingParent)
	}
	return New(parent, ps.IntAttr("range_offset"), ps.IntAttr("range_size"))
}

// NewFileSystem implements resolver.FileSystemHelper: a single-entry
// "file system" whose root is the range itself, so a data range can be
// looked up through the same GetFileEntryByPathSpec/SubFileEntries path
// as a real container.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	obj, err := h.NewFileObject(ps, parent, ctx)
	if err != nil {
		return nil, err
	}
	return &FileSystem{obj: obj, ps: ps}, nil
}

// FileObject clips reads and seeks to [offset, offset+size) of parent.
type FileObject struct {
	vfs.OffsetTracker
	parent vfs.FileObject
	offset int64
	size   int64
}

// New returns a FileObject exposing parent's [offset, offset+size) range.
// parent's own cursor is not shared; every read seeks parent explicitly.
func New(parent vfs.FileObject, offset, size int64) (*FileObject, error) {
	if offset < 0 || size < 0 {
		return nil, dfvfs.NewPathSpecError("New", dfvfs.ErrUnknownAttribute)
	}
	return &FileObject{parent: parent, offset: offset, size: size}, nil
}

// Size implements vfs.FileObject.
func (f *FileObject) Size() (int64, error) { return f.size, nil }

// Read implements io.Reader, translating the clipped cursor into an
// absolute seek+read against parent.
func (f *FileObject) Read(p []byte) (int, error) {
	remaining := f.size - f.Offset()
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := f.parent.Seek(f.offset+f.Offset(), io.SeekStart); err != nil {
		return 0, dfvfs.NewIOError(f.Offset(), err)
	}
	n, err := f.parent.Read(p)
	f.Advance(n)
	return n, err
}

// Seek implements io.Seeker over the clipped [0, size) view.
func (f *FileObject) Seek(offset int64, whence int) (int64, error) {
	return f.OffsetTracker.Seek(offset, whence, f.size)
}

// Close implements io.Closer. It does not close parent: the parent
// file-like object is owned by the context that opened it, potentially
// shared by other data ranges over the same bytes.
func (f *FileObject) Close() error { return nil }

// FileSystem exposes a single DATA_RANGE entry as its own root, so range
// drivers compose with the resolver's "always open the parent as a file
// object, then ask its FileSystem for an entry" contract.
type FileSystem struct {
	vfs.PathHelper
	obj vfs.FileObject
	ps  *pathspec.PathSpec
}

// Open implements vfs.FileSystem.
func (f *FileSystem) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (f *FileSystem) Close() error { return nil }

// FileEntryExistsByPathSpec implements vfs.FileSystem: a data range has
// exactly one entry, its root.
func (f *FileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	return true, nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (f *FileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	return f.entry(ps), nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (f *FileSystem) GetRootFileEntry() (vfs.FileEntry, error) {
	return f.entry(f.ps), nil
}

func (f *FileSystem) entry(ps *pathspec.PathSpec) vfs.FileEntry {
	e := &entry{fs: f}
	e.Base = vfs.NewBase(ps, "", true, false, func() (*vfs.Stat, error) {
		size, err := f.obj.Size()
		if err != nil {
			return nil, err
		}
		return &vfs.Stat{Type: vfs.TypeFile, Size: size, IsAllocated: true}, nil
	})
	return e
}

type entry struct {
	vfs.Base
	fs *FileSystem
}

func (e *entry) NumberOfDataStreams() (int, error) { return 1, nil }

func (e *entry) DataStreams() ([]vfs.DataStream, error) {
	return []vfs.DataStream{vfs.NewSimpleDataStream(vfs.DefaultDataStreamName, func() (vfs.FileObject, error) {
		return e.fs.obj, nil
	})}, nil
}

func (e *entry) GetDataStream(name string) (vfs.DataStream, error) {
	if name != vfs.DefaultDataStreamName {
		return nil, nil
	}
	streams, err := e.DataStreams()
	if err != nil {
		return nil, err
	}
	return streams[0], nil
}

func (e *entry) GetFileObject(dataStream string) (vfs.FileObject, error) { return e.fs.obj, nil }

func (e *entry) GetParentFileEntry() (vfs.FileEntry, error) { return nil, nil }

func (e *entry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) { return nil, nil }), nil
}
