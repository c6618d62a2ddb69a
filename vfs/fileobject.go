// Package vfs defines the common contract every back end implements:
// file-like objects, data streams, attributes, file entries, directories,
// file systems and volume systems, plus small embeddable base types that
// give every concrete back end the same lazy-size/lazy-stat caching
// behavior without reimplementing it. This plays the same role rclone's
// backend Object/Fs types play by embedding shared plumbing (a backend's
// Object embedding fs.ObjectInfo) instead of each backend rewriting
// caching and metadata bookkeeping from scratch.
package vfs

import (
	"io"
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// FileObject is the stateful byte cursor every back end exposes.
// Read-only: there is no Write. Seeking past the end is allowed;
// subsequent reads then return io.EOF with zero bytes, and Offset still
// reports the sought-to position.
type FileObject interface {
	io.Reader
	io.Seeker
	io.Closer

	// Size returns the total number of bytes, computed once and cached.
	Size() (int64, error)

	// Offset returns the current cursor position.
	Offset() int64
}

// SizeFunc computes a FileObject's size on first use.
type SizeFunc func() (int64, error)

// SizeCache lazily computes and caches a FileObject's size. Embed it in a
// concrete FileObject implementation and call Size() from the embedder's
// Size method.
type SizeCache struct {
	once sync.Once
	size int64
	err  error
	fn   SizeFunc
}

// NewSizeCache returns a SizeCache that calls fn at most once.
func NewSizeCache(fn SizeFunc) *SizeCache {
	return &SizeCache{fn: fn}
}

// Size returns the cached size, computing it via fn on first call.
func (c *SizeCache) Size() (int64, error) {
	c.once.Do(func() {
		c.size, c.err = c.fn()
	})
	return c.size, c.err
}

// OffsetTracker implements the monotonic-or-random-seek, never-negative
// cursor bookkeeping every FileObject needs, leaving the actual byte
// transfer to the embedder.
type OffsetTracker struct {
	offset int64
}

// Offset returns the current cursor position.
func (t *OffsetTracker) Offset() int64 { return t.offset }

// Seek updates the tracked offset according to whence, consulting size
// for io.SeekEnd. It never allows the resulting offset to go negative.
func (t *OffsetTracker) Seek(offset int64, whence int, size int64) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = t.offset + offset
	case io.SeekEnd:
		next = size + offset
	default:
		return t.offset, &dfvfs.IOError{Offset: t.offset, Err: io.ErrUnexpectedEOF}
	}
	if next < 0 {
		return t.offset, &dfvfs.IOError{Offset: next, Err: io.ErrUnexpectedEOF}
	}
	t.offset = next
	return t.offset, nil
}

// Advance moves the tracked offset forward by n bytes, e.g. after a
// successful Read.
func (t *OffsetTracker) Advance(n int) {
	t.offset += int64(n)
}

// SetOffset forces the tracked offset, e.g. after a rewind-and-skip
// re-decode on a GZIP/BZIP2/XZ stream that cannot seek backward natively.
func (t *OffsetTracker) SetOffset(offset int64) {
	t.offset = offset
}
