package resolver

import (
	"fmt"
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/internal/log"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
)

// entrySelectorAttrs names, per type indicator, the path-spec attributes
// that pick out one entry inside an already-open container rather than
// describing the container itself. FileSystem cache keys strip these so
// every file inside the same TAR archive, and every partition of the same
// table, shares one open FileSystem instance; FileObject cache keys keep
// them, since two different files in the same container are two different
// byte streams. Type indicators absent from this table strip nothing:
// their FileSystem is built from the exact path spec (the single-entry
// drivers — raw, compressed, encrypted, SQLite blob — serve different
// bytes for different attribute values and must not be shared across
// them).
var entrySelectorAttrs = map[dfvfs.TypeIndicator][]string{
	dfvfs.TypeOS:    {"location"},
	dfvfs.TypeFake:  {"location"},
	dfvfs.TypeMount: {"location"},

	dfvfs.TypeTAR:  {"location"},
	dfvfs.TypeZIP:  {"location"},
	dfvfs.TypeCPIO: {"location"},

	dfvfs.TypeTSKPartition:  {"location", "part_index", "start_offset"},
	dfvfs.TypeGPT:           {"location", "entry_index", "start_offset", "type_guid", "unique_guid"},
	dfvfs.TypeAPM:           {"location", "entry_index", "start_offset"},
	dfvfs.TypeLVM:           {"location", "volume_index"},
	dfvfs.TypeAPFSContainer: {"location", "volume_index"},
	dfvfs.TypeCS:            {"location", "volume_index"},
	dfvfs.TypeVShadow:       {"location", "store_index"},

	dfvfs.TypeTSK:  {"location", "inode"},
	dfvfs.TypeEXT:  {"location", "inode"},
	dfvfs.TypeNTFS: {"location", "inode", "data_stream"},
	dfvfs.TypeHFS:  {"location", "inode", "data_stream"},
	dfvfs.TypeAPFS: {"location", "identifier"},
	dfvfs.TypeFAT:  {"location", "inode"},
	dfvfs.TypeXFS:  {"location", "inode"},
}

// ErrKeyError is returned by Register*/Deregister* on a duplicate
// registration or an unregistered deregistration.
type ErrKeyError struct {
	TypeIndicator dfvfs.TypeIndicator
	Op            string
}

func (e *ErrKeyError) Error() string {
	return fmt.Sprintf("KeyError: %s: type indicator %q", e.Op, e.TypeIndicator)
}

// PathSpecMangler rewrites a path spec before it is resolved, e.g. to
// rebase a relative location against a mount point. The default is the
// identity function.
type PathSpecMangler func(*pathspec.PathSpec) *pathspec.PathSpec

// Resolver is the registry of type-indicator helpers plus the entry point
// callers use to turn a path spec into an opened object. A process
// ordinarily uses the package-level Default; NewResolver exists so tests
// can build an isolated registry.
type Resolver struct {
	mu         sync.Mutex
	fsHelpers  map[dfvfs.TypeIndicator]FileSystemHelper
	objHelpers map[dfvfs.TypeIndicator]FileObjectHelper
	mangler    PathSpecMangler
}

// NewResolver returns a Resolver with no helpers registered.
func NewResolver() *Resolver {
	return &Resolver{
		fsHelpers:  make(map[dfvfs.TypeIndicator]FileSystemHelper),
		objHelpers: make(map[dfvfs.TypeIndicator]FileObjectHelper),
		mangler:    func(ps *pathspec.PathSpec) *pathspec.PathSpec { return ps },
	}
}

// Default is the process-wide resolver backend packages register into.
var Default = NewResolver()

// SetPathSpecMangler installs fn as the rewrite hook OpenFileObject and
// OpenFileSystem apply to every path spec before resolving it. Passing
// nil restores the identity mangler.
func (r *Resolver) SetPathSpecMangler(fn PathSpecMangler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		fn = func(ps *pathspec.PathSpec) *pathspec.PathSpec { return ps }
	}
	r.mangler = fn
}

// RegisterFileSystemHelper adds h, keyed by h.TypeIndicator(). Registering
// the same type indicator twice returns ErrKeyError.
func (r *Resolver) RegisterFileSystemHelper(h FileSystemHelper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := h.TypeIndicator()
	if _, ok := r.fsHelpers[t]; ok {
		return &ErrKeyError{TypeIndicator: t, Op: "RegisterFileSystemHelper"}
	}
	r.fsHelpers[t] = h
	return nil
}

// DeregisterFileSystemHelper removes the helper for t. Deregistering a
// type indicator that was never registered returns ErrKeyError.
func (r *Resolver) DeregisterFileSystemHelper(t dfvfs.TypeIndicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fsHelpers[t]; !ok {
		return &ErrKeyError{TypeIndicator: t, Op: "DeregisterFileSystemHelper"}
	}
	delete(r.fsHelpers, t)
	return nil
}

// RegisterFileObjectHelper adds h, keyed by h.TypeIndicator(). Registering
// the same type indicator twice returns ErrKeyError.
func (r *Resolver) RegisterFileObjectHelper(h FileObjectHelper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := h.TypeIndicator()
	if _, ok := r.objHelpers[t]; ok {
		return &ErrKeyError{TypeIndicator: t, Op: "RegisterFileObjectHelper"}
	}
	r.objHelpers[t] = h
	return nil
}

// DeregisterFileObjectHelper removes the helper for t. Deregistering a
// type indicator that was never registered returns ErrKeyError.
func (r *Resolver) DeregisterFileObjectHelper(t dfvfs.TypeIndicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objHelpers[t]; !ok {
		return &ErrKeyError{TypeIndicator: t, Op: "DeregisterFileObjectHelper"}
	}
	delete(r.objHelpers, t)
	return nil
}

func (r *Resolver) fsHelper(t dfvfs.TypeIndicator) (FileSystemHelper, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.fsHelpers[t]
	return h, ok
}

func (r *Resolver) objHelper(t dfvfs.TypeIndicator) (FileObjectHelper, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.objHelpers[t]
	return h, ok
}

// containerKey returns the cache key a FileSystem for ps should be stored
// under: ps with every entry-selecting attribute stripped from its own
// (not its parent's) attributes, so "tar at /a.tar, member x.txt" and
// "tar at /a.tar, member y.txt" share one open archive FileSystem.
func containerKey(ps *pathspec.PathSpec) (string, error) {
	attrs := ps.Attrs()
	stripped := false
	for _, k := range entrySelectorAttrs[ps.TypeIndicator()] {
		if _, ok := attrs[k]; ok {
			delete(attrs, k)
			stripped = true
		}
	}
	if !stripped {
		return ps.Comparable(), nil
	}
	stub, err := pathspec.New(ps.TypeIndicator(), ps.GetParent(), attrs)
	if err != nil {
		return "", err
	}
	return stub.Comparable(), nil
}

// OpenFileObject returns the file-like object named by ps, opening (and
// caching in ctx) its parent chain as needed. If ps has a parent, the
// parent is always opened as a file-like object first, never directly as
// a file system: a container's FileObjectHelper is responsible for
// opening its own FileSystem internally when it needs directory lookup.
func (r *Resolver) OpenFileObject(ps *pathspec.PathSpec, ctx *Context) (vfs.FileObject, error) {
	ps = r.mangler(ps)
	key := ps.Comparable()
	if obj, ok := ctx.getFileObject(key); ok {
		return obj, nil
	}

	h, ok := r.objHelper(ps.TypeIndicator())
	if !ok {
		return nil, dfvfs.NewPathSpecError("OpenFileObject",
			fmt.Errorf("no file object helper registered for %s", ps.TypeIndicator()))
	}

	before := ctx.snapshotKeys()

	var parent vfs.FileObject
	var err error
	if ps.HasParent() {
		parent, err = r.OpenFileObject(ps.GetParent(), ctx)
		if err != nil {
			ctx.rollback(before)
			return nil, err
		}
	}

	obj, err := h.NewFileObject(ps, parent, ctx)
	if err != nil {
		ctx.rollback(before)
		return nil, err
	}
	log.Debugf("opened file object for %s", ps.TypeIndicator())
	ctx.putFileObject(key, obj)
	return obj, nil
}

// OpenFileSystem returns the file system that owns ps (e.g. the TAR
// archive a member path spec lives in, or the partition table a
// TSK_PARTITION entry lives in), opening and caching its parent chain as
// needed. The cache key strips entry-selecting attributes so repeated
// lookups into the same container reuse one FileSystem instance.
func (r *Resolver) OpenFileSystem(ps *pathspec.PathSpec, ctx *Context) (vfs.FileSystem, error) {
	ps = r.mangler(ps)
	key, err := containerKey(ps)
	if err != nil {
		return nil, err
	}
	if fs, ok := ctx.getFileSystem(key); ok {
		return fs, nil
	}

	h, ok := r.fsHelper(ps.TypeIndicator())
	if !ok {
		return nil, dfvfs.NewPathSpecError("OpenFileSystem",
			fmt.Errorf("no file system helper registered for %s", ps.TypeIndicator()))
	}

	before := ctx.snapshotKeys()

	var parent vfs.FileObject
	if ps.HasParent() {
		parent, err = r.OpenFileObject(ps.GetParent(), ctx)
		if err != nil {
			ctx.rollback(before)
			return nil, err
		}
	}

	fs, err := h.NewFileSystem(ps, parent, ctx)
	if err != nil {
		ctx.rollback(before)
		return nil, err
	}
	if err := fs.Open(ps); err != nil {
		ctx.rollback(before)
		return nil, err
	}
	log.Debugf("opened file system for %s", ps.TypeIndicator())
	ctx.putFileSystem(key, fs)
	return fs, nil
}

// OpenFileEntry is a convenience wrapper that opens ps's owning file
// system and looks the entry up within it.
func (r *Resolver) OpenFileEntry(ps *pathspec.PathSpec, ctx *Context) (vfs.FileEntry, error) {
	fs, err := r.OpenFileSystem(ps, ctx)
	if err != nil {
		return nil, err
	}
	return fs.GetFileEntryByPathSpec(ps)
}
