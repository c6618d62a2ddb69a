package vfs

import "github.com/log2timeline/godfvfs/pathspec"

// VolumeSystem specializes FileSystem for back ends whose root enumerates
// a fixed set of partitions or logical volumes rather than an arbitrary
// directory tree.
type VolumeSystem interface {
	FileSystem

	// NumberOfSubEntries reports how many volumes/partitions this volume
	// system exposes.
	NumberOfSubEntries() (int, error)

	// SubEntryPathSpecs enumerates the child locators directly, since
	// callers frequently want "every partition" without walking a
	// directory listing.
	SubEntryPathSpecs() ([]*pathspec.PathSpec, error)
}
