package vfs

import (
	"sync"
	"time"

	"github.com/log2timeline/godfvfs/pathspec"
)

// EntryType classifies what a FileEntry represents.
type EntryType int

// Entry types.
const (
	TypeUnknown EntryType = iota
	TypeDirectory
	TypeFile
	TypeLink
	TypeDevice
	TypePipe
	TypeSocket
)

// Stat carries the lazily computed metadata of a FileEntry.
type Stat struct {
	Type       EntryType
	Size       int64
	Mtime      time.Time
	Atime      time.Time
	Ctime      time.Time
	Btime      time.Time
	Mode       uint32
	Owner      string
	Group      string
	IsAllocated bool
}

// StatFunc computes a FileEntry's Stat on first use.
type StatFunc func() (*Stat, error)

// StatCache lazily computes and caches a FileEntry's stat exactly once,
// regardless of how many times Stat is called.
type StatCache struct {
	once sync.Once
	stat *Stat
	err  error
	fn   StatFunc
}

// NewStatCache returns a StatCache that calls fn at most once.
func NewStatCache(fn StatFunc) *StatCache {
	return &StatCache{fn: fn}
}

// Stat returns the cached stat, computing it via fn on first call.
func (c *StatCache) Stat() (*Stat, error) {
	c.once.Do(func() {
		c.stat, c.err = c.fn()
	})
	return c.stat, c.err
}

// FileEntry represents a directory, file, link, device, pipe or socket.
type FileEntry interface {
	// Name is the entry's own name (not its full path).
	Name() string

	// PathSpec is the locator that names this entry.
	PathSpec() *pathspec.PathSpec

	// Stat returns the entry's metadata, computed lazily and cached.
	Stat() (*Stat, error)

	// NumberOfDataStreams reports how many data streams this entry has.
	NumberOfDataStreams() (int, error)

	// DataStreams enumerates the entry's data streams.
	DataStreams() ([]DataStream, error)

	// GetDataStream returns the named data stream, or nil if absent.
	GetDataStream(name string) (DataStream, error)

	// NumberOfAttributes reports how many attributes this entry has.
	NumberOfAttributes() (int, error)

	// Attributes enumerates the entry's attributes.
	Attributes() ([]Attribute, error)

	// GetFileObject opens the named data stream (DefaultDataStreamName
	// for file contents).
	GetFileObject(dataStream string) (FileObject, error)

	// GetParentFileEntry returns the parent entry, or nil when this is
	// the root or the back end does not record a parent.
	GetParentFileEntry() (FileEntry, error)

	// SubFileEntries returns a fresh directory iterator over this
	// entry's children.
	SubFileEntries() (Directory, error)

	IsRoot() bool
	IsVirtual() bool
	IsAllocated() bool
	IsDevice() bool
	IsDirectory() bool
	IsFile() bool
	IsLink() bool
	IsPipe() bool
	IsSocket() bool
}

// Base provides the lazy-stat caching, the Is* predicates and the
// zero-attributes default every FileEntry needs, so concrete back ends
// implement only the data-stream, file-object, parent and children
// methods. Embed it
// and override methods as needed; remember to set PS, IsRootEntry and
// Virtual via the constructor.
type Base struct {
	PS          *pathspec.PathSpec
	EntryName   string
	IsRootEntry bool
	Virtual     bool
	StatCache   *StatCache
}

// NewBase returns a Base with its stat computed lazily via statFn.
func NewBase(ps *pathspec.PathSpec, name string, isRoot, virtual bool, statFn StatFunc) Base {
	return Base{PS: ps, EntryName: name, IsRootEntry: isRoot, Virtual: virtual, StatCache: NewStatCache(statFn)}
}

// Name implements FileEntry.
func (b *Base) Name() string { return b.EntryName }

// PathSpec implements FileEntry.
func (b *Base) PathSpec() *pathspec.PathSpec { return b.PS }

// Stat implements FileEntry.
func (b *Base) Stat() (*Stat, error) { return b.StatCache.Stat() }

// IsRoot implements FileEntry.
func (b *Base) IsRoot() bool { return b.IsRootEntry }

// IsVirtual implements FileEntry.
func (b *Base) IsVirtual() bool { return b.Virtual }

func (b *Base) statType() EntryType {
	st, err := b.Stat()
	if err != nil || st == nil {
		return TypeUnknown
	}
	return st.Type
}

// IsAllocated implements FileEntry. A virtual entry is always allocated,
// since it was synthesized rather than read off a real volume.
func (b *Base) IsAllocated() bool {
	if b.Virtual {
		return true
	}
	st, err := b.Stat()
	if err != nil || st == nil {
		return false
	}
	return st.IsAllocated
}

// IsDirectory implements FileEntry.
func (b *Base) IsDirectory() bool { return b.statType() == TypeDirectory }

// IsFile implements FileEntry.
func (b *Base) IsFile() bool { return b.statType() == TypeFile }

// IsLink implements FileEntry.
func (b *Base) IsLink() bool { return b.statType() == TypeLink }

// IsDevice implements FileEntry.
func (b *Base) IsDevice() bool { return b.statType() == TypeDevice }

// IsPipe implements FileEntry.
func (b *Base) IsPipe() bool { return b.statType() == TypePipe }

// IsSocket implements FileEntry.
func (b *Base) IsSocket() bool { return b.statType() == TypeSocket }

// NumberOfAttributes implements FileEntry's zero-attributes default.
func (b *Base) NumberOfAttributes() (int, error) { return 0, nil }

// Attributes implements FileEntry's zero-attributes default.
func (b *Base) Attributes() ([]Attribute, error) { return nil, nil }
