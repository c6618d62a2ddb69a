// Package fake implements the FAKE back end: an entirely in-memory file
// system used to build synthetic trees for tests and for the synthetic
// roots mount points need. It plays the same role rclone's own in-memory
// test fixtures play for backend tests, generalized into a first-class,
// resolvable back end since path specs may legitimately name a location
// inside one (the FAKE type indicator is part of the closed set, not a
// test-only escape hatch).
package fake

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeFake)
}

type node struct {
	isDir    bool
	data     []byte
	children map[string]*node
}

// FileSystem is a synthetic tree built entirely in memory.
type FileSystem struct {
	vfs.PathHelper
	mu   sync.RWMutex
	root *node
}

// New returns an empty FileSystem with just a root directory.
func New() *FileSystem {
	return &FileSystem{
		PathHelper: vfs.PathHelper{Separator: "/"},
		root:       &node{isDir: true, children: make(map[string]*node)},
	}
}

// AddFile inserts a file at location, creating intermediate directories
// as needed. location is slash-separated and relative to the root.
func (f *FileSystem) AddFile(location string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.mkdirAll(f.dirname(location))
	n.children[f.basename(location)] = &node{data: append([]byte(nil), data...)}
}

// AddDirectory inserts an empty directory at location.
func (f *FileSystem) AddDirectory(location string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAll(location)
}

func (f *FileSystem) dirname(location string) string {
	location = strings.Trim(location, "/")
	idx := strings.LastIndex(location, "/")
	if idx < 0 {
		return ""
	}
	return location[:idx]
}

func (f *FileSystem) basename(location string) string {
	location = strings.Trim(location, "/")
	idx := strings.LastIndex(location, "/")
	if idx < 0 {
		return location
	}
	return location[idx+1:]
}

func (f *FileSystem) mkdirAll(location string) *node {
	n := f.root
	location = strings.Trim(location, "/")
	if location == "" {
		return n
	}
	for _, seg := range strings.Split(location, "/") {
		child, ok := n.children[seg]
		if !ok {
			child = &node{isDir: true, children: make(map[string]*node)}
			n.children[seg] = child
		}
		n = child
	}
	return n
}

func (f *FileSystem) lookup(location string) *node {
	location = strings.Trim(location, "/")
	n := f.root
	if location == "" {
		return n
	}
	for _, seg := range strings.Split(location, "/") {
		if !n.isDir {
			return nil
		}
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

// Open implements vfs.FileSystem.
func (f *FileSystem) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (f *FileSystem) Close() error { return nil }

// FileEntryExistsByPathSpec implements vfs.FileSystem.
func (f *FileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lookup(ps.StringAttr("location")) != nil, nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (f *FileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	f.mu.RLock()
	n := f.lookup(ps.StringAttr("location"))
	f.mu.RUnlock()
	if n == nil {
		return nil, nil
	}
	loc := strings.Trim(ps.StringAttr("location"), "/")
	return newEntry(f, ps, loc, n), nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (f *FileSystem) GetRootFileEntry() (vfs.FileEntry, error) {
	ps, err := pathspec.New(dfvfs.TypeFake, nil, map[string]interface{}{"location": vfs.LocationRoot})
	if err != nil {
		return nil, err
	}
	return f.GetFileEntryByPathSpec(ps)
}

type entry struct {
	vfs.Base
	fs   *FileSystem
	path string
	n    *node
}

func newEntry(f *FileSystem, ps *pathspec.PathSpec, path string, n *node) *entry {
	name := f.basename(path)
	isRoot := path == ""
	e := &entry{fs: f, path: path, n: n}
	e.Base = vfs.NewBase(ps, name, isRoot, true, func() (*vfs.Stat, error) {
		t := vfs.TypeFile
		size := int64(0)
		if n.isDir {
			t = vfs.TypeDirectory
		} else {
			size = int64(len(n.data))
		}
		return &vfs.Stat{Type: t, Size: size, IsAllocated: true}, nil
	})
	return e
}

func (e *entry) NumberOfDataStreams() (int, error) {
	if e.n.isDir {
		return 0, nil
	}
	return 1, nil
}

func (e *entry) DataStreams() ([]vfs.DataStream, error) {
	if e.n.isDir {
		return nil, nil
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
	if e.n.isDir || dataStream != vfs.DefaultDataStreamName {
		return nil, dfvfs.NewPathSpecError("GetFileObject", io.ErrClosedPipe)
	}
	return &fileObject{r: bytes.NewReader(e.n.data), data: e.n.data}, nil
}

func (e *entry) GetParentFileEntry() (vfs.FileEntry, error) {
	if e.IsRoot() {
		return nil, nil
	}
	parentPath := e.fs.dirname(e.path)
	ps, err := pathspec.New(dfvfs.TypeFake, nil, map[string]interface{}{"location": "/" + parentPath})
	if err != nil {
		return nil, err
	}
	return e.fs.GetFileEntryByPathSpec(ps)
}

func (e *entry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) {
		if !e.n.isDir {
			return nil, nil
		}
		names := make([]string, 0, len(e.n.children))
		for name := range e.n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*pathspec.PathSpec, 0, len(names))
		for _, name := range names {
			child := e.path + "/" + name
			if e.path == "" {
				child = name
			}
			ps, err := pathspec.New(dfvfs.TypeFake, nil, map[string]interface{}{"location": "/" + child})
			if err != nil {
				return nil, err
			}
			out = append(out, ps)
		}
		return out, nil
	}), nil
}

type fileObject struct {
	vfs.OffsetTracker
	r    *bytes.Reader
	data []byte
}

func (o *fileObject) Size() (int64, error) { return int64(len(o.data)), nil }

func (o *fileObject) Read(p []byte) (int, error) {
	n, err := o.r.ReadAt(p, o.Offset())
	o.Advance(n)
	return n, err
}

func (o *fileObject) Seek(offset int64, whence int) (int64, error) {
	next, err := o.OffsetTracker.Seek(offset, whence, int64(len(o.data)))
	if err != nil {
		return next, err
	}
	return next, nil
}

func (o *fileObject) Close() error { return nil }
