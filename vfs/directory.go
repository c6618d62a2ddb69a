package vfs

import (
	"sort"
	"strings"

	"github.com/log2timeline/godfvfs/pathspec"
)

// Directory is a lazy, restartable generator of child path specifications.
// It must never be materialized eagerly, and iteration must be
// restartable: FileEntry.SubFileEntries returns a fresh Directory each
// time it is called, never a shared cursor.
type Directory interface {
	// Entries returns every child path spec. Concrete back ends query
	// the backing format on demand inside this call rather than at
	// construction time, so repeated calls reflect a restart, not a
	// shared, already-consumed cursor.
	Entries() ([]*pathspec.PathSpec, error)
}

// SliceDirectory is a Directory whose Entries calls genFn afresh on every
// call and returns the whole resulting slice. It satisfies "restartable":
// a fresh logical iteration always starts at the first entry, since
// Entries returns the whole slice rather than an exhausted cursor.
type SliceDirectory struct {
	genFn func() ([]*pathspec.PathSpec, error)
}

// NewSliceDirectory returns a Directory backed by genFn.
func NewSliceDirectory(genFn func() ([]*pathspec.PathSpec, error)) *SliceDirectory {
	return &SliceDirectory{genFn: genFn}
}

// Entries implements Directory.
func (d *SliceDirectory) Entries() ([]*pathspec.PathSpec, error) { return d.genFn() }

// SynthesizeIntermediateDirectories computes the immediate children of
// parent implied by a flat list of member paths, synthesizing the
// intermediate directory segments that TAR/ZIP/CPIO archives omit when
// they don't carry explicit directory entries.
//
// Given parent == "a/b" and members ["a/b/c/d.txt", "a/b/e.txt", "a/b/c/f.txt"],
// it returns ["c", "e.txt"]: "c" is a synthesized directory segment (no
// member is literally named "a/b/c"), "e.txt" is a real leaf member.
func SynthesizeIntermediateDirectories(parent string, members []string, sep string) []string {
	prefix := parent
	if prefix != "" && !strings.HasSuffix(prefix, sep) {
		prefix += sep
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range members {
		if parent != "" && !strings.HasPrefix(m, prefix) {
			continue
		}
		if parent == "" && strings.HasPrefix(m, sep) {
			m = strings.TrimPrefix(m, sep)
		}
		rel := strings.TrimPrefix(m, prefix)
		if rel == "" {
			continue
		}
		idx := strings.Index(rel, sep)
		var segment string
		if idx < 0 {
			segment = rel
		} else {
			segment = rel[:idx]
		}
		if segment == "" || seen[segment] {
			continue
		}
		seen[segment] = true
		out = append(out, segment)
	}
	sort.Strings(out)
	return out
}
