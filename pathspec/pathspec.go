// Package pathspec implements an immutable, composable path specification
// chain: a typed locator that names any object regardless of how many
// back ends it is nested behind.
//
// It plays the role a union of rclone's per-backend "fspath" parsing and
// rclone's fs.RegInfo registry play together: rclone names a remote with a
// flat "remote:path" string resolved through a single registry of backend
// constructors; this module instead needs an explicit *chain* of locators
// (an image, inside it a partition, inside that an encrypted volume, ...),
// so the chain itself — not a string — is the addressable unit, built as a
// tagged struct validated against a per-type attribute table rather than a
// class hierarchy.
package pathspec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// PathSpec is one node in a singly-linked, immutable chain. Build one with
// New; there is no way to mutate a PathSpec after construction.
type PathSpec struct {
	typeIndicator dfvfs.TypeIndicator
	parent        *PathSpec
	attrs         map[string]interface{}
}

// allowedAttributes lists the attribute keys each type indicator accepts.
// Constructing a PathSpec with a key not in this set returns
// ErrUnknownAttribute. Types not listed accept no attributes beyond the
// common ones implicitly allowed for every node (none, currently).
var allowedAttributes = map[dfvfs.TypeIndicator][]string{
	dfvfs.TypeOS:               {"location"},
	dfvfs.TypeFake:             {"location"},
	dfvfs.TypeMount:            {"location", "mount_point"},
	dfvfs.TypeRaw:              {},
	dfvfs.TypeTSK:              {"location", "inode"},
	dfvfs.TypeEXT:              {"location", "inode"},
	dfvfs.TypeNTFS:             {"location", "inode", "data_stream"},
	dfvfs.TypeHFS:              {"location", "inode", "data_stream"},
	dfvfs.TypeAPFS:             {"location", "identifier"},
	dfvfs.TypeFAT:              {"location", "inode"},
	dfvfs.TypeXFS:              {"location", "inode"},
	dfvfs.TypeTSKPartition:     {"location", "part_index", "start_offset"},
	dfvfs.TypeGPT:              {"location", "entry_index", "start_offset", "type_guid", "unique_guid"},
	dfvfs.TypeAPM:              {"location", "entry_index", "start_offset"},
	dfvfs.TypeLVM:              {"location", "volume_index"},
	dfvfs.TypeAPFSContainer:    {"location", "volume_index"},
	dfvfs.TypeCS:               {"location", "volume_index"},
	dfvfs.TypeBDE:              {"location", "part_index", "start_offset"},
	dfvfs.TypeFVDE:             {"location", "part_index", "start_offset"},
	dfvfs.TypeLUKSDE:           {"location", "part_index", "start_offset"},
	dfvfs.TypeVShadow:          {"location", "store_index"},
	dfvfs.TypeQCOW:             {"location", "parent_image"},
	dfvfs.TypeVHDI:             {"location", "parent_image"},
	dfvfs.TypeVMDK:             {"location", "parent_image"},
	dfvfs.TypeMODI:             {"location", "parent_image"},
	dfvfs.TypePHDI:             {"location", "parent_image"},
	dfvfs.TypeEWF:              {"location"},
	dfvfs.TypeCPIO:             {"location"},
	dfvfs.TypeTAR:              {"location"},
	dfvfs.TypeZIP:              {"location"},
	dfvfs.TypeGZIP:             {},
	dfvfs.TypeBZIP2:            {},
	dfvfs.TypeXZ:               {},
	dfvfs.TypeCompressedStream: {"compression_method"},
	dfvfs.TypeEncryptedStream:  {"encryption_method", "cipher_mode"},
	dfvfs.TypeEncodedStream:    {"encoding_method"},
	dfvfs.TypeDataRange:        {"range_offset", "range_size"},
	dfvfs.TypeSQLiteBlob:       {"table_name", "column_name", "row_condition", "row_index"},
	dfvfs.TypeOverlay:          {"location"},
}

// New constructs a PathSpec. parent must be nil for root type indicators
// (OS, FAKE, MOUNT) and non-nil otherwise. Every key in attrs must be
// allowed for t; unknown keys return ErrUnknownAttribute.
func New(t dfvfs.TypeIndicator, parent *PathSpec, attrs map[string]interface{}) (*PathSpec, error) {
	if dfvfs.IsRootType(t) {
		if parent != nil {
			return nil, dfvfs.NewPathSpecError("New", dfvfs.ErrUnexpectedParent)
		}
	} else if parent == nil {
		return nil, dfvfs.NewPathSpecError("New", dfvfs.ErrMissingParent)
	}

	allowed := allowedAttributes[t]
	allowedSet := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}
	for k := range attrs {
		if !allowedSet[k] {
			return nil, dfvfs.NewPathSpecError(
				fmt.Sprintf("New(%s): attribute %q", t, k), dfvfs.ErrUnknownAttribute)
		}
	}

	cp := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return &PathSpec{typeIndicator: t, parent: parent, attrs: cp}, nil
}

// TypeIndicator returns the back end this node names.
func (p *PathSpec) TypeIndicator() dfvfs.TypeIndicator { return p.typeIndicator }

// HasParent reports whether the node has a parent path specification.
func (p *PathSpec) HasParent() bool { return p.parent != nil }

// GetParent returns the parent node, or nil at a root.
func (p *PathSpec) GetParent() *PathSpec { return p.parent }

// GetRoot walks to and returns the outermost node of the chain.
func (p *PathSpec) GetRoot() *PathSpec {
	cur := p
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Attr returns the named attribute and whether it was set.
func (p *PathSpec) Attr(name string) (interface{}, bool) {
	v, ok := p.attrs[name]
	return v, ok
}

// StringAttr returns the named attribute as a string, or "" if unset or
// not a string.
func (p *PathSpec) StringAttr(name string) string {
	v, ok := p.attrs[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IntAttr returns the named attribute as an int64, or 0 if unset or not an
// integer type.
func (p *PathSpec) IntAttr(name string) int64 {
	v, ok := p.attrs[name]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// Attrs returns a defensive copy of the node's own attributes (not the
// parent's).
func (p *PathSpec) Attrs() map[string]interface{} {
	cp := make(map[string]interface{}, len(p.attrs))
	for k, v := range p.attrs {
		cp[k] = v
	}
	return cp
}

// Copy returns a new chain identical to p except that the attributes in
// overrides replace (or add to) this node's own attributes. The parent
// chain is shared, not duplicated, since PathSpec nodes are immutable.
func (p *PathSpec) Copy(overrides map[string]interface{}) (*PathSpec, error) {
	merged := p.Attrs()
	for k, v := range overrides {
		merged[k] = v
	}
	return New(p.typeIndicator, p.parent, merged)
}

// isOffsetKey reports whether an attribute of this name is rendered in
// hex by Comparable.
func isOffsetKey(key string) bool {
	return strings.HasSuffix(key, "offset") || strings.HasSuffix(key, "_index") ||
		key == "inode" || key == "identifier"
}

func formatValue(key string, v interface{}) string {
	switch val := v.(type) {
	case []byte:
		var b strings.Builder
		for _, c := range val {
			fmt.Fprintf(&b, "\\x%02x", c)
		}
		return b.String()
	case int:
		return formatInt(key, int64(val))
	case int64:
		return formatInt(key, val)
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatInt(key string, v int64) string {
	if isOffsetKey(key) {
		return fmt.Sprintf("0x%08x", v)
	}
	return strconv.FormatInt(v, 10)
}

// line renders this node's own "type: <T>, attr1: v1, ..." line, with
// attribute names sorted lexicographically.
func (p *PathSpec) line() string {
	keys := make([]string, 0, len(p.attrs))
	for k := range p.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("type: %s", p.typeIndicator))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, formatValue(k, p.attrs[k])))
	}
	return strings.Join(parts, ", ")
}

// Comparable produces the canonical string form used for equality and
// cache keying: one line per node, outer (root) to inner (this node),
// newline-joined.
func (p *PathSpec) Comparable() string {
	var lines []string
	var walk func(n *PathSpec)
	walk = func(n *PathSpec) {
		if n == nil {
			return
		}
		walk(n.parent)
		lines = append(lines, n.line())
	}
	walk(p)
	return strings.Join(lines, "\n") + "\n"
}

// Equal reports whether two path specs have the same canonical form.
func (p *PathSpec) Equal(other *PathSpec) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Comparable() == other.Comparable()
}

// String implements fmt.Stringer for debugging/logging; it is the same as
// Comparable and safe to log since a path spec never carries credentials.
func (p *PathSpec) String() string { return p.Comparable() }
