// Package osfs implements the OS back end: a FileSystem rooted directly
// on the host's own file system, the bottom of every path-spec chain that
// starts from a plain file or device on disk.
//
// Grounded on rclone's backend/local: os.Open/os.Stat/os.ReadDir for the
// actual I/O, the same calls rclone's local.go makes, generalized here to
// the vfs.FileSystem/vfs.FileEntry contract instead of fs.Fs/fs.Object.
package osfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeOS)
	h := &Helper{}
	_ = resolver.Default.RegisterFileSystemHelper(h)
	_ = resolver.Default.RegisterFileObjectHelper(h)
}

// Helper constructs both the FileSystem and FileObject for TypeOS.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeOS }

// NewFileSystem implements resolver.FileSystemHelper.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	return New(), nil
}

// NewFileObject implements resolver.FileObjectHelper: opening an OS path
// spec directly (rather than through its FileSystem's GetFileEntry) is
// the common case for the outermost node of a chain.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	fs := New()
	entry, err := fs.GetFileEntryByPathSpec(ps)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, dfvfs.NewIOError(0, os.ErrNotExist)
	}
	return entry.GetFileObject(vfs.DefaultDataStreamName)
}

// FileSystem is a thin shim over the host's own file system.
type FileSystem struct {
	vfs.PathHelper
}

// New returns an unopened FileSystem rooted at the host's native
// separator.
func New() *FileSystem {
	return &FileSystem{PathHelper: vfs.PathHelper{Separator: string(filepath.Separator)}}
}

// Open implements vfs.FileSystem.
func (f *FileSystem) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (f *FileSystem) Close() error { return nil }

func (f *FileSystem) location(ps *pathspec.PathSpec) string {
	loc := ps.StringAttr("location")
	if loc == "" {
		return f.PathSeparator()
	}
	return loc
}

// FileEntryExistsByPathSpec implements vfs.FileSystem.
func (f *FileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	_, err := os.Lstat(f.location(ps))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (f *FileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	loc := f.location(ps)
	info, err := os.Lstat(loc)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return newEntry(f, ps, loc, info), nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (f *FileSystem) GetRootFileEntry() (vfs.FileEntry, error) {
	ps, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": f.PathSeparator()})
	if err != nil {
		return nil, err
	}
	return f.GetFileEntryByPathSpec(ps)
}

type entry struct {
	vfs.Base
	fs   *FileSystem
	path string
}

func newEntry(f *FileSystem, ps *pathspec.PathSpec, path string, info os.FileInfo) *entry {
	isRoot := path == f.PathSeparator()
	e := &entry{fs: f, path: path}
	e.Base = vfs.NewBase(ps, f.Basename(path), isRoot, false, func() (*vfs.Stat, error) {
		return statFromInfo(info), nil
	})
	return e
}

func statFromInfo(info os.FileInfo) *vfs.Stat {
	t := vfs.TypeFile
	switch {
	case info.IsDir():
		t = vfs.TypeDirectory
	case info.Mode()&os.ModeSymlink != 0:
		t = vfs.TypeLink
	case info.Mode()&os.ModeDevice != 0:
		t = vfs.TypeDevice
	case info.Mode()&os.ModeNamedPipe != 0:
		t = vfs.TypePipe
	case info.Mode()&os.ModeSocket != 0:
		t = vfs.TypeSocket
	}
	return &vfs.Stat{
		Type:        t,
		Size:        info.Size(),
		Mtime:       info.ModTime(),
		Mode:        uint32(info.Mode().Perm()),
		IsAllocated: true,
	}
}

func (e *entry) NumberOfDataStreams() (int, error) {
	st, err := e.Stat()
	if err != nil {
		return 0, err
	}
	if st.Type != vfs.TypeFile {
		return 0, nil
	}
	return 1, nil
}

func (e *entry) DataStreams() ([]vfs.DataStream, error) {
	n, err := e.NumberOfDataStreams()
	if err != nil || n == 0 {
		return nil, err
	}
	return []vfs.DataStream{vfs.NewSimpleDataStream(vfs.DefaultDataStreamName, func() (vfs.FileObject, error) {
		return e.GetFileObject(vfs.DefaultDataStreamName)
	})}, nil
}

func (e *entry) GetDataStream(name string) (vfs.DataStream, error) {
	streams, err := e.DataStreams()
	if err != nil {
		return nil, err
	}
	for _, s := range streams {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, nil
}

func (e *entry) GetFileObject(dataStream string) (vfs.FileObject, error) {
	if dataStream != vfs.DefaultDataStreamName {
		return nil, dfvfs.NewPathSpecError("GetFileObject", errUnknownStream(dataStream))
	}
	fh, err := os.Open(e.path)
	if err != nil {
		return nil, err
	}
	return newFileObject(fh), nil
}

func (e *entry) GetParentFileEntry() (vfs.FileEntry, error) {
	if e.IsRoot() {
		return nil, nil
	}
	parentPath := e.fs.Dirname(e.path)
	ps, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": parentPath})
	if err != nil {
		return nil, err
	}
	return e.fs.GetFileEntryByPathSpec(ps)
}

func (e *entry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) {
		st, err := e.Stat()
		if err != nil || st.Type != vfs.TypeDirectory {
			return nil, nil
		}
		names, err := os.ReadDir(e.path)
		if err != nil {
			return nil, err
		}
		out := make([]*pathspec.PathSpec, 0, len(names))
		for _, n := range names {
			child, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{
				"location": e.fs.Join(e.path, n.Name()),
			})
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	}), nil
}

type unknownStreamError string

func (e unknownStreamError) Error() string { return "unknown data stream: " + string(e) }
func errUnknownStream(name string) error   { return unknownStreamError(name) }

type fileObject struct {
	vfs.OffsetTracker
	sizeCache *vfs.SizeCache
	f         *os.File
}

func newFileObject(f *os.File) *fileObject {
	o := &fileObject{f: f}
	o.sizeCache = vfs.NewSizeCache(func() (int64, error) {
		info, err := f.Stat()
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	})
	return o
}

func (o *fileObject) Size() (int64, error) { return o.sizeCache.Size() }

func (o *fileObject) Read(p []byte) (int, error) {
	n, err := o.f.ReadAt(p, o.Offset())
	o.Advance(n)
	return n, err
}

func (o *fileObject) Seek(offset int64, whence int) (int64, error) {
	size, err := o.Size()
	if err != nil {
		return 0, err
	}
	return o.OffsetTracker.Seek(offset, whence, size)
}

func (o *fileObject) Close() error { return o.f.Close() }

var _ io.ReadSeekCloser = (*fileObject)(nil)
