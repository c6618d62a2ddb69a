// Package encoded implements the ENCODED_STREAM back end: a byte-level
// text encoding (base16/base32/base64) unwrapped to recover the
// underlying binary stream, distinct from compression or encryption.
//
// Since the encoded form and the decoded form are never the same length
// in a way that maps byte-for-byte, and none of the three encodings
// support partial/random decode from an arbitrary offset, the whole
// parent is decoded once into memory and served from a byte slice —
// the same bounded-fidelity tradeoff the compressed-stream back end
// makes for its size computation, just unconditional here rather than
// deferred to the first Size() call.
package encoded

import (
	"bytes"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"io"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

// Encoding method names, the values the "encoding_method" attribute on
// an ENCODED_STREAM path spec accepts.
const (
	MethodBase16 = "base16"
	MethodBase32 = "base32"
	MethodBase64 = "base64"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeEncodedStream)
	h := &Helper{}
	_ = resolver.Default.RegisterFileObjectHelper(h)
	_ = resolver.Default.RegisterFileSystemHelper(h)
}

// Helper constructs the FileObject and virtual single-entry FileSystem
// for TypeEncodedStream.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeEncodedStream }

func decodeAll(method string, encoded []byte) ([]byte, error) {
	switch method {
	case MethodBase16:
		out := make([]byte, hex.DecodedLen(len(encoded)))
		n, err := hex.Decode(out, encoded)
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeEncodedStream, Reason: err.Error()}
		}
		return out[:n], nil
	case MethodBase32:
		out, err := base32.StdEncoding.DecodeString(string(encoded))
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeEncodedStream, Reason: err.Error()}
		}
		return out, nil
	case MethodBase64:
		out, err := base64.StdEncoding.DecodeString(string(encoded))
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeEncodedStream, Reason: err.Error()}
		}
		return out, nil
	default:
		return nil, &dfvfs.NotSupportedError{Reason: "unknown encoding method " + method}
	}
}

// NewFileObject implements resolver.FileObjectHelper.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileObject", dfvfs.ErrMissingParent)
	}
	method := ps.StringAttr("encoding_method")
	if method == "" {
		return nil, dfvfs.NewPathSpecError("NewFileObject", dfvfs.ErrUnknownAttribute)
	}
	if _, err := parent.Seek(0, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	encoded, err := io.ReadAll(parent)
	if err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	decoded, err := decodeAll(method, bytes.TrimRight(encoded, "\r\n"))
	if err != nil {
		return nil, err
	}
	return &FileObject{data: decoded}, nil
}

// NewFileSystem implements resolver.FileSystemHelper.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	obj, err := h.NewFileObject(ps, parent, ctx)
	if err != nil {
		return nil, err
	}
	return &FileSystem{obj: obj, ps: ps}, nil
}

// FileObject serves the fully decoded bytes.
type FileObject struct {
	vfs.OffsetTracker
	data []byte
}

// Size implements vfs.FileObject.
func (f *FileObject) Size() (int64, error) { return int64(len(f.data)), nil }

// Read implements io.Reader.
func (f *FileObject) Read(p []byte) (int, error) {
	off := f.Offset()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	f.Advance(n)
	return n, nil
}

// Seek implements io.Seeker.
func (f *FileObject) Seek(offset int64, whence int) (int64, error) {
	return f.OffsetTracker.Seek(offset, whence, int64(len(f.data)))
}

// Close implements io.Closer.
func (f *FileObject) Close() error { return nil }

var _ io.ReadSeekCloser = (*FileObject)(nil)

// FileSystem exposes the decoded stream as a single virtual root entry.
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
