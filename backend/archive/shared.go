// Package archive implements the archive-member family: TAR, ZIP and
// CPIO back ends. All three share the same shape — scan the container
// once for its member list, then present each member as a file entry
// clipped to its own bytes — so this file holds the common FileSystem,
// FileEntry and directory-synthesis machinery; tar.go, zip.go and cpio.go
// each only supply the per-format member scan and per-member FileObject
// opener.
//
// Grounded on rclone's own backend/zip (zip.go wraps a *zip.Reader and
// walks zip.File entries into an fs.DirEntries tree) generalized to a
// shared shape across three archive formats instead of one, since TAR and
// CPIO need the same "flat member list -> synthesized directory tree"
// treatment ZIP gets from archive/zip's own flat File list.
package archive

import (
	"sort"
	"strings"
	"time"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
)

// Member is one entry of an archive's flat member list.
type Member struct {
	// Name is the member's path inside the archive, "/"-separated,
	// without a leading separator (e.g. "dir/file.txt").
	Name  string
	Size  int64
	Mode  uint32
	Mtime time.Time
	IsDir bool
	// Open returns a fresh FileObject over this member's bytes, from the
	// start. The scanners set it for every member, directories included;
	// synthesized intermediate directories have no Member at all.
	Open func() (vfs.FileObject, error)
}

// FS is the shared vfs.FileSystem implementation for an archive's member
// list, specialized per format only by typeIndicator (used to build
// fresh path specs for root/children/parent lookups).
type FS struct {
	vfs.PathHelper
	typeIndicator dfvfs.TypeIndicator
	// parent is the path specification chain above the archive itself
	// (e.g. the OS path spec naming the .tar file), reused as the parent
	// of every member path spec this FS constructs.
	parent   *pathspec.PathSpec
	members  []Member
	byPath   map[string]*Member
	allPaths []string
}

// NewFS builds an FS over members, already fully scanned. parent is the
// path specification chain above the archive container itself.
func NewFS(t dfvfs.TypeIndicator, parent *pathspec.PathSpec, members []Member) *FS {
	f := &FS{
		PathHelper:    vfs.PathHelper{Separator: "/"},
		typeIndicator: t,
		parent:        parent,
		members:       members,
		byPath:        make(map[string]*Member, len(members)),
		allPaths:      make([]string, 0, len(members)),
	}
	for i := range members {
		m := &members[i]
		p := "/" + strings.Trim(m.Name, "/")
		f.byPath[p] = m
		f.allPaths = append(f.allPaths, p)
	}
	sort.Strings(f.allPaths)
	return f
}

// Open implements vfs.FileSystem.
func (f *FS) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (f *FS) Close() error { return nil }

func normalizeLocation(loc string) string {
	if loc == "" {
		return vfs.LocationRoot
	}
	if !strings.HasPrefix(loc, "/") {
		loc = "/" + loc
	}
	if len(loc) > 1 {
		loc = strings.TrimRight(loc, "/")
	}
	return loc
}

func (f *FS) isSynthesizedDir(loc string) bool {
	prefix := loc
	if prefix != "/" {
		prefix += "/"
	} else {
		prefix = "/"
	}
	for _, p := range f.allPaths {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// FileEntryExistsByPathSpec implements vfs.FileSystem.
func (f *FS) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	loc := normalizeLocation(ps.StringAttr("location"))
	if loc == vfs.LocationRoot {
		return true, nil
	}
	if m, ok := f.byPath[loc]; ok && !m.IsDir {
		return true, nil
	}
	return f.isSynthesizedDir(loc), nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (f *FS) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	loc := normalizeLocation(ps.StringAttr("location"))
	if loc == vfs.LocationRoot {
		return f.newEntry(loc, nil, true), nil
	}
	if m, ok := f.byPath[loc]; ok && !m.IsDir {
		return f.newEntry(loc, m, false), nil
	}
	if f.isSynthesizedDir(loc) {
		return f.newEntry(loc, nil, false), nil
	}
	return nil, nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (f *FS) GetRootFileEntry() (vfs.FileEntry, error) {
	ps, err := pathspec.New(f.typeIndicator, f.parent, map[string]interface{}{"location": vfs.LocationRoot})
	if err != nil {
		return nil, err
	}
	return f.GetFileEntryByPathSpec(ps)
}

func (f *FS) newEntry(loc string, m *Member, isRoot bool) *memberEntry {
	e := &memberEntry{fs: f, loc: loc, member: m}
	name := f.Basename(loc)
	if isRoot {
		name = ""
	}
	virtual := m == nil
	e.Base = vfs.NewBase(nil, name, isRoot, virtual, func() (*vfs.Stat, error) {
		if m == nil {
			return &vfs.Stat{Type: vfs.TypeDirectory, IsAllocated: true}, nil
		}
		return &vfs.Stat{
			Type:        vfs.TypeFile,
			Size:        m.Size,
			Mtime:       m.Mtime,
			Mode:        m.Mode,
			IsAllocated: true,
		}, nil
	})
	ps, err := pathspec.New(f.typeIndicator, f.parent, map[string]interface{}{"location": loc})
	if err == nil {
		e.Base.PS = ps
	}
	return e
}

type memberEntry struct {
	vfs.Base
	fs     *FS
	loc    string
	member *Member
}

func (e *memberEntry) NumberOfDataStreams() (int, error) {
	if e.member == nil {
		return 0, nil
	}
	return 1, nil
}

func (e *memberEntry) DataStreams() ([]vfs.DataStream, error) {
	if e.member == nil {
		return nil, nil
	}
	return []vfs.DataStream{vfs.NewSimpleDataStream(vfs.DefaultDataStreamName, func() (vfs.FileObject, error) {
		return e.member.Open()
	})}, nil
}

func (e *memberEntry) GetDataStream(name string) (vfs.DataStream, error) {
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

func (e *memberEntry) GetFileObject(dataStream string) (vfs.FileObject, error) {
	if e.member == nil || dataStream != vfs.DefaultDataStreamName {
		return nil, dfvfs.NewPathSpecError("GetFileObject", dfvfs.ErrUnknownAttribute)
	}
	return e.member.Open()
}

func (e *memberEntry) GetParentFileEntry() (vfs.FileEntry, error) {
	if e.IsRoot() {
		return nil, nil
	}
	parentLoc := e.fs.Dirname(e.loc)
	ps, err := pathspec.New(e.fs.typeIndicator, e.fs.parent, map[string]interface{}{"location": parentLoc})
	if err != nil {
		return nil, err
	}
	return e.fs.GetFileEntryByPathSpec(ps)
}

func (e *memberEntry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) {
		st, err := e.Stat()
		if err != nil || st.Type != vfs.TypeDirectory {
			return nil, nil
		}
		parent := e.loc
		if parent == vfs.LocationRoot {
			parent = ""
		}
		segments := vfs.SynthesizeIntermediateDirectories(parent, e.fs.allPaths, "/")
		out := make([]*pathspec.PathSpec, 0, len(segments))
		for _, seg := range segments {
			child := e.fs.Join(e.loc, seg)
			ps, err := pathspec.New(e.fs.typeIndicator, e.fs.parent, map[string]interface{}{"location": child})
			if err != nil {
				return nil, err
			}
			out = append(out, ps)
		}
		return out, nil
	}), nil
}
