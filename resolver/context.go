package resolver

import (
	"sort"
	"sync"

	"github.com/log2timeline/godfvfs/internal/log"
	"github.com/log2timeline/godfvfs/vfs"
)

type kind int

const (
	kindFileObject kind = iota
	kindFileSystem
)

type entry struct {
	kind     kind
	fileObj  vfs.FileObject
	fileSys  vfs.FileSystem
	refcount int
	seq      int
}

// Context is a call-scoped cache of opened objects. At most one file-like
// object and at most one file system are cached per path-spec comparable
// form, each with a reference count; Release tears them down in reverse
// insertion order, exactly once.
type Context struct {
	// Resolver is the Resolver this context was created for; helpers use
	// it to recurse back into OpenFileSystem/OpenFileObject for the same
	// path spec (e.g. a TAR entry's FileObjectHelper opens the TAR
	// FileSystem, then looks up its entry).
	Resolver *Resolver

	mu      sync.Mutex
	entries map[string]*entry
	nextSeq int
	closed  bool
}

// NewContext returns an empty context bound to r.
func NewContext(r *Resolver) *Context {
	return &Context{Resolver: r, entries: make(map[string]*entry)}
}

func (c *Context) getFileObject(key string) (vfs.FileObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.kind != kindFileObject {
		return nil, false
	}
	e.refcount++
	return e.fileObj, true
}

func (c *Context) getFileSystem(key string) (vfs.FileSystem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.kind != kindFileSystem {
		return nil, false
	}
	e.refcount++
	return e.fileSys, true
}

func (c *Context) putFileObject(key string, obj vfs.FileObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSeq++
	c.entries[key] = &entry{kind: kindFileObject, fileObj: obj, refcount: 1, seq: c.nextSeq}
}

func (c *Context) putFileSystem(key string, fs vfs.FileSystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSeq++
	c.entries[key] = &entry{kind: kindFileSystem, fileSys: fs, refcount: 1, seq: c.nextSeq}
}

// snapshotKeys returns every key currently cached, for rollback on a
// partially-failed open.
func (c *Context) snapshotKeys() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.entries))
	for k := range c.entries {
		out[k] = true
	}
	return out
}

type closer struct {
	key string
	e   *entry
}

func orderedDesc(entries map[string]*entry, exclude map[string]bool) []closer {
	out := make([]closer, 0, len(entries))
	for k, e := range entries {
		if exclude != nil && exclude[k] {
			continue
		}
		out = append(out, closer{k, e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].e.seq > out[j].e.seq })
	return out
}

// rollback closes and removes every entry not present in before, in
// reverse insertion order.
func (c *Context) rollback(before map[string]bool) {
	c.mu.Lock()
	toClose := orderedDesc(c.entries, before)
	for _, item := range toClose {
		delete(c.entries, item.key)
	}
	c.mu.Unlock()

	for _, item := range toClose {
		closeEntry(item.e)
	}
}

func closeEntry(e *entry) {
	if e.kind == kindFileObject {
		_ = e.fileObj.Close()
	} else {
		_ = e.fileSys.Close()
	}
}

func closeEntryErr(e *entry) error {
	if e.kind == kindFileObject {
		return e.fileObj.Close()
	}
	return e.fileSys.Close()
}

// Release closes every cached object in reverse insertion order, children
// before parents, and empties the cache. Idempotent: calling Release
// twice is a no-op the second time.
func (c *Context) Release() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	ordered := orderedDesc(entries, nil)
	log.Debugf("releasing context: closing %d cached objects", len(ordered))

	var firstErr error
	for _, item := range ordered {
		if err := closeEntryErr(item.e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Entries reports how many distinct objects are currently cached, for
// tests.
func (c *Context) Entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
