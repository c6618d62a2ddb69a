// Package raw implements the RAW back end: an unsplit raw disk image,
// presented as a single virtual file exposing its parent's bytes
// unchanged. It is the simplest storage-media-image driver and the
// template the split/segmented formats (EWF, split-RAW) would specialize
// if ported.
//
// Grounded on rclone's backend/compress uncompressedModeHandler
// (compress/uncompressed_handler.go): when a layer adds no transform of
// its own, the handler is a pass-through over the wrapped object rather
// than a special case threaded through every call site.
package raw

import (
	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeRaw)
	h := &Helper{}
	_ = resolver.Default.RegisterFileObjectHelper(h)
	_ = resolver.Default.RegisterFileSystemHelper(h)
}

// Helper constructs the pass-through FileObject and single-entry
// FileSystem for TypeRaw.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeRaw }

// NewFileObject implements resolver.FileObjectHelper: RAW has no
// attributes of its own (§3.1), so the parent's bytes are the raw
// image's bytes, start to end.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileObject", dfvfs.ErrMissingParent)
	}
	return &FileObject{parent: parent}, nil
}

// NewFileSystem implements resolver.FileSystemHelper: a single-entry
// virtual file system whose root is the raw image itself, so TSK_PARTITION
// and friends can address "/raw image as a whole" through the same
// GetFileEntryByPathSpec contract used everywhere else.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	obj, err := h.NewFileObject(ps, parent, ctx)
	if err != nil {
		return nil, err
	}
	return &FileSystem{obj: obj, ps: ps}, nil
}

// FileObject mirrors its parent's bytes one-to-one: RAW adds no
// transform, so every Read/Seek/Size call is forwarded unchanged.
type FileObject struct {
	parent vfs.FileObject
}

// Size implements vfs.FileObject.
func (f *FileObject) Size() (int64, error) { return f.parent.Size() }

// Offset implements vfs.FileObject.
func (f *FileObject) Offset() int64 { return f.parent.Offset() }

// Read implements io.Reader.
func (f *FileObject) Read(p []byte) (int, error) { return f.parent.Read(p) }

// Seek implements io.Seeker.
func (f *FileObject) Seek(offset int64, whence int) (int64, error) {
	return f.parent.Seek(offset, whence)
}

// Close implements io.Closer. It does not close parent, which the
// resolver context owns independently.
func (f *FileObject) Close() error { return nil }

// FileSystem exposes the raw image as a single virtual root entry.
type FileSystem struct {
	vfs.PathHelper
	obj vfs.FileObject
	ps  *pathspec.PathSpec
}

// Open implements vfs.FileSystem.
func (f *FileSystem) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (f *FileSystem) Close() error { return nil }

// FileEntryExistsByPathSpec implements vfs.FileSystem.
func (f *FileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	return true, nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (f *FileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	return f.root(ps), nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (f *FileSystem) GetRootFileEntry() (vfs.FileEntry, error) {
	return f.root(f.ps), nil
}

func (f *FileSystem) root(ps *pathspec.PathSpec) vfs.FileEntry {
	e := &entry{fs: f}
	e.Base = vfs.NewBase(ps, "", true, true, func() (*vfs.Stat, error) {
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
	streams, _ := e.DataStreams()
	return streams[0], nil
}

func (e *entry) GetFileObject(dataStream string) (vfs.FileObject, error) { return e.fs.obj, nil }

func (e *entry) GetParentFileEntry() (vfs.FileEntry, error) { return nil, nil }

func (e *entry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) { return nil, nil }), nil
}
