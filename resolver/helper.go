// Package resolver implements a singleton registry of per-type-indicator
// resolver helpers, plus a call-scoped Context that guarantees identical
// path specifications resolve to the same opened object.
//
// The Context cache generalizes rclone's fs/cache package — see
// fs/cache/cache_test.go's TestGet/TestGetFile, which assert that
// GetFn(ctx, key, create) called twice with the same key returns the
// identical *fs.Fs — into a reference-counted, LIFO-torn-down cache scoped
// to a single caller-owned Context rather than rclone's process-wide,
// never-closing cache, because this module's objects (open image handles,
// decompressors, encrypted-volume contexts) must be deterministically
// closed when a caller's scope ends.
package resolver

import (
	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
)

// Helper is the common capability every resolver helper advertises: the
// type indicator it serves.
type Helper interface {
	TypeIndicator() dfvfs.TypeIndicator
}

// FileSystemHelper constructs the vfs.FileSystem for a path spec of the
// helper's type, given the already-opened parent byte stream (nil for
// root types OS/FAKE/MOUNT).
type FileSystemHelper interface {
	Helper
	NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *Context) (vfs.FileSystem, error)
}

// FileObjectHelper constructs the vfs.FileObject for a path spec of the
// helper's type, given the already-opened parent byte stream.
type FileObjectHelper interface {
	Helper
	NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *Context) (vfs.FileObject, error)
}
