package vfs

import (
	"strings"

	"github.com/log2timeline/godfvfs/pathspec"
)

// LocationRoot is the canonical root location string most file systems
// use.
const LocationRoot = "/"

// FileSystem owns a parent file-like object (or is the host OS root) and
// exposes lookup, the root entry, and open/close lifecycle.
type FileSystem interface {
	// Open acquires the underlying resources for ps. Called exactly once
	// per instance by the resolver.
	Open(ps *pathspec.PathSpec) error

	// Close releases resources in reverse acquisition order. Idempotent
	// after the first call.
	Close() error

	// FileEntryExistsByPathSpec reports whether ps names an existing
	// entry. Returns false (never an error) for expected absence; an
	// error only on genuine I/O failure.
	FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error)

	// GetFileEntryByPathSpec returns the entry named by ps, or (nil, nil)
	// if it does not exist.
	GetFileEntryByPathSpec(ps *pathspec.PathSpec) (FileEntry, error)

	// GetRootFileEntry returns the file system's root entry.
	GetRootFileEntry() (FileEntry, error)

	// PathSeparator is the separator this file system's locations use:
	// "/" for most virtual-mode containers, "\" for FAT/NTFS native
	// mode.
	PathSeparator() string

	// Join joins location segments using this file system's separator.
	Join(segments ...string) string

	// Basename returns the final segment of location.
	Basename(location string) string

	// Dirname returns location with its final segment removed.
	Dirname(location string) string

	// GetPathSegmentAndSuffix splits candidate into the first segment
	// past base and whatever remains, using this file system's
	// separator.
	GetPathSegmentAndSuffix(base, candidate string) (segment, remainder string)
}

// PathHelper implements the Join/Basename/Dirname/GetPathSegmentAndSuffix
// family for a fixed separator, so concrete file systems embed it instead
// of reimplementing path-segment arithmetic per back end.
type PathHelper struct {
	Separator string
}

// PathSeparator implements FileSystem.PathSeparator.
func (h PathHelper) PathSeparator() string { return h.Separator }

// Join implements FileSystem.Join.
func (h PathHelper) Join(segments ...string) string {
	var nonEmpty []string
	for _, s := range segments {
		s = strings.Trim(s, h.Separator)
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return h.Separator + strings.Join(nonEmpty, h.Separator)
}

// Basename implements FileSystem.Basename.
func (h PathHelper) Basename(location string) string {
	trimmed := strings.TrimRight(location, h.Separator)
	idx := strings.LastIndex(trimmed, h.Separator)
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+len(h.Separator):]
}

// Dirname implements FileSystem.Dirname.
func (h PathHelper) Dirname(location string) string {
	trimmed := strings.TrimRight(location, h.Separator)
	idx := strings.LastIndex(trimmed, h.Separator)
	if idx <= 0 {
		return h.Separator
	}
	return trimmed[:idx]
}

// GetPathSegmentAndSuffix implements FileSystem.GetPathSegmentAndSuffix.
func (h PathHelper) GetPathSegmentAndSuffix(base, candidate string) (string, string) {
	rel := strings.TrimPrefix(candidate, base)
	rel = strings.TrimPrefix(rel, h.Separator)
	if rel == "" {
		return "", ""
	}
	idx := strings.Index(rel, h.Separator)
	if idx < 0 {
		return rel, ""
	}
	return rel[:idx], rel[idx+len(h.Separator):]
}
