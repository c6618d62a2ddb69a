// Package mount implements the MOUNT back end: not a FileSystem of its
// own, but a path-spec mangler that re-roots a chain built against a
// synthetic mount point onto the real chain it stands for, installed via
// resolver.Resolver.SetPathSpecMangler.
//
// This is the "path prefix hook" the resolver design calls out explicitly
// for mount helpers; it lets a caller build every other path spec against
// a short-lived, named mount point ("the image currently being examined")
// instead of repeating its full parent chain everywhere.
package mount

import (
	"strings"
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/internal/log"
	"github.com/log2timeline/godfvfs/pathspec"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeMount)
}

// Mangler holds the live name -> target mappings a process has mounted.
type Mangler struct {
	mu     sync.RWMutex
	points map[string]*pathspec.PathSpec
}

// New returns an empty Mangler.
func New() *Mangler {
	return &Mangler{points: make(map[string]*pathspec.PathSpec)}
}

// Mount records that the mount point named name resolves to target.
// Mounting the same name twice replaces the previous target.
func (m *Mangler) Mount(name string, target *pathspec.PathSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.Infof("mounting %q on %s", name, target.TypeIndicator())
	m.points[name] = target
}

// Unmount removes the mapping for name, if any.
func (m *Mangler) Unmount(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, name)
}

func (m *Mangler) lookup(name string) (*pathspec.PathSpec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.points[name]
	return t, ok
}

// Mangle implements resolver.PathSpecMangler. A path spec whose outermost
// (root) node is not MOUNT passes through unchanged. Otherwise the MOUNT
// root is replaced by a copy of the mounted target with the mount root's
// own location appended, and every node between the original root and ps
// is rebuilt on top of the new root.
func (m *Mangler) Mangle(ps *pathspec.PathSpec) *pathspec.PathSpec {
	root := ps.GetRoot()
	if root.TypeIndicator() != dfvfs.TypeMount {
		return ps
	}
	target, ok := m.lookup(root.StringAttr("mount_point"))
	if !ok {
		return ps
	}

	attrs := target.Attrs()
	attrs["location"] = joinLocations(target.StringAttr("location"), root.StringAttr("location"))
	newRoot, err := pathspec.New(target.TypeIndicator(), target.GetParent(), attrs)
	if err != nil {
		return ps
	}
	if ps == root {
		return newRoot
	}
	rebuilt, err := rebuildOnto(ps, root, newRoot)
	if err != nil {
		return ps
	}
	return rebuilt
}

func rebuildOnto(ps, oldRoot, newRoot *pathspec.PathSpec) (*pathspec.PathSpec, error) {
	if ps == oldRoot {
		return newRoot, nil
	}
	parent, err := rebuildOnto(ps.GetParent(), oldRoot, newRoot)
	if err != nil {
		return nil, err
	}
	return pathspec.New(ps.TypeIndicator(), parent, ps.Attrs())
}

func joinLocations(base, sub string) string {
	base = strings.TrimRight(base, "/")
	sub = strings.TrimLeft(sub, "/")
	if base == "" {
		return "/" + sub
	}
	if sub == "" {
		return base
	}
	return base + "/" + sub
}
