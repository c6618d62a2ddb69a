// Package lvm implements the LVM back end: an LVM2 physical volume label,
// its metadata area, and the logical volumes described by that metadata's
// plain-text config tree.
//
// Full LVM2 fidelity (thin pools, striping, mirroring, snapshots) needs a
// real config-tree grammar; none of the retrieval pack vendors one, so
// this driver hand-rolls the minimum needed for the common case — a
// single physical volume holding one or more linear logical volumes —
// with a brace-balancing scanner plus regexp over the extracted text
// blocks, the same "stdlib is the right tool, no ecosystem library fits"
// tradeoff format/ahocorasick.go documents for its automaton. Only linear
// segments are understood; striped, mirrored or other segment types are
// skipped rather than misreporting their range.
package lvm

import (
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/log2timeline/godfvfs/backend/datarange"
	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

const sectorSize = int64(512)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeLVM)
	h := &Helper{}
	_ = resolver.Default.RegisterFileSystemHelper(h)
	_ = resolver.Default.RegisterFileObjectHelper(h)

	_ = format.StoreFor(dfvfs.CategoryVolumeSystem).AddSpecification(&format.Specification{
		Identifier:    "lvm2",
		TypeIndicator: dfvfs.TypeLVM,
		Category:      dfvfs.CategoryVolumeSystem,
		Signatures:    []format.Signature{format.OffsetAt(sectorSize, []byte("LABELONE"))},
	})
}

// Volume is one parsed logical volume: a name and its byte range expressed
// against the physical volume's own bytes (pe_start already folded in).
type Volume struct {
	Index       int
	Name        string
	StartOffset int64
	Size        int64
}

type diskArea struct {
	Offset int64
	Size   int64
}

func readDiskAreaList(buf []byte, off int) ([]diskArea, int) {
	var areas []diskArea
	for {
		offset := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		size := int64(binary.LittleEndian.Uint64(buf[off+8 : off+16]))
		off += 16
		if offset == 0 && size == 0 {
			break
		}
		areas = append(areas, diskArea{Offset: offset, Size: size})
	}
	return areas, off
}

// readLabel parses the label sector, the PV header and the first metadata
// area, returning the raw metadata text.
func readLabel(parent vfs.FileObject) (string, error) {
	label := make([]byte, sectorSize)
	if _, err := parent.Seek(sectorSize, io.SeekStart); err != nil {
		return "", dfvfs.NewIOError(sectorSize, err)
	}
	if _, err := io.ReadFull(parent, label); err != nil {
		return "", dfvfs.NewIOError(sectorSize, err)
	}
	if string(label[0:8]) != "LABELONE" {
		return "", &dfvfs.FormatError{Reason: "missing LABELONE signature"}
	}
	pvHeaderOffset := int(binary.LittleEndian.Uint32(label[20:24]))
	if pvHeaderOffset <= 0 || pvHeaderOffset >= len(label) {
		return "", &dfvfs.FormatError{Reason: "implausible PV header offset"}
	}

	off := pvHeaderOffset + 32 + 8 // skip pv_uuid[32], device_size_xl[8]
	_, off = readDiskAreaList(label, off)
	metadataAreas, _ := readDiskAreaList(label, off)
	if len(metadataAreas) == 0 {
		return "", &dfvfs.FormatError{Reason: "no metadata area recorded in PV header"}
	}

	mda := metadataAreas[0]
	mdaBuf := make([]byte, mda.Size)
	if _, err := parent.Seek(mda.Offset, io.SeekStart); err != nil {
		return "", dfvfs.NewIOError(mda.Offset, err)
	}
	if _, err := io.ReadFull(parent, mdaBuf); err != nil {
		return "", dfvfs.NewIOError(mda.Offset, err)
	}

	rawLocnOffset := int64(binary.LittleEndian.Uint64(mdaBuf[24:32]))
	rawLocnSize := int64(binary.LittleEndian.Uint64(mdaBuf[32:40]))
	if rawLocnOffset <= 0 || rawLocnOffset+rawLocnSize > mda.Size {
		return "", &dfvfs.FormatError{Reason: "implausible metadata text location"}
	}
	return string(mdaBuf[rawLocnOffset : rawLocnOffset+rawLocnSize]), nil
}

var (
	extentSizeRe = regexp.MustCompile(`\bextent_size\s*=\s*(\d+)`)
	peStartRe    = regexp.MustCompile(`(?m)^\s*pe_start\s*=\s*(\d+)`)
	segmentTypeRe = regexp.MustCompile(`(?m)^\s*type\s*=\s*"(\w+)"`)
	startExtentRe = regexp.MustCompile(`(?m)^\s*start_extent\s*=\s*(\d+)`)
	extentCountRe = regexp.MustCompile(`(?m)^\s*extent_count\s*=\s*(\d+)`)
)

// extractBlock returns the balanced-brace contents of the first "name {"
// occurrence in text (not including the braces themselves), and whether it
// was found.
func extractBlock(text, name string) (string, bool) {
	idx := strings.Index(text, name+" {")
	if idx < 0 {
		return "", false
	}
	start := idx + len(name+" {")
	depth := 1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start:i], true
			}
		}
	}
	return "", false
}

// topLevelStanzas splits a block's contents into its immediate "name { ... }"
// children, returning each child's name and inner contents in order.
func topLevelStanzas(text string) []struct {
	Name string
	Body string
} {
	var out []struct {
		Name string
		Body string
	}
	nameRe := regexp.MustCompile(`(?m)^\s*([\w.\-]+)\s*\{`)
	pos := 0
	for pos < len(text) {
		loc := nameRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		name := text[pos+loc[2] : pos+loc[3]]
		bodyStart := pos + loc[1]
		depth := 1
		i := bodyStart
		for ; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					goto done
				}
			}
		}
	done:
		out = append(out, struct {
			Name string
			Body string
		}{Name: name, Body: text[bodyStart:i]})
		pos = i + 1
	}
	return out
}

func firstUint(re *regexp.Regexp, text string) (int64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseMetadata extracts the linear logical volumes from metadata's plain
// text config tree.
func parseMetadata(metadata string) ([]Volume, error) {
	extentSizeSectors, ok := firstUint(extentSizeRe, metadata)
	if !ok {
		return nil, &dfvfs.FormatError{Reason: "metadata missing extent_size"}
	}
	peStartSectors, _ := firstUint(peStartRe, metadata)

	lvBlock, ok := extractBlock(metadata, "logical_volumes")
	if !ok {
		return nil, nil
	}

	var volumes []Volume
	index := 0
	for _, lv := range topLevelStanzas(lvBlock) {
		seg, ok := extractBlock(lv.Body, "segment1")
		if !ok {
			continue
		}
		if m := segmentTypeRe.FindStringSubmatch(seg); m != nil && m[1] != "linear" {
			continue
		}
		startExtent, _ := firstUint(startExtentRe, seg)
		extentCount, ok := firstUint(extentCountRe, seg)
		if !ok || extentCount == 0 {
			continue
		}
		index++
		startSectors := peStartSectors + startExtent*extentSizeSectors
		sizeSectors := extentCount * extentSizeSectors
		volumes = append(volumes, Volume{
			Index:       index,
			Name:        lv.Name,
			StartOffset: startSectors * sectorSize,
			Size:        sizeSectors * sectorSize,
		})
	}
	return volumes, nil
}

func location(index int) string { return fmt.Sprintf("/lvm%d", index) }

// Helper constructs the LVM volume system.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeLVM }

// NewFileSystem implements resolver.FileSystemHelper.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileSystem", dfvfs.ErrMissingParent)
	}
	metadata, err := readLabel(parent)
	if err != nil {
		return nil, err
	}
	volumes, err := parseMetadata(metadata)
	if err != nil {
		return nil, err
	}
	return newFileSystem(ps.GetParent(), parent, volumes), nil
}

// NewFileObject implements resolver.FileObjectHelper.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	fs, err := h.NewFileSystem(ps, parent, ctx)
	if err != nil {
		return nil, err
	}
	entry, err := fs.GetFileEntryByPathSpec(ps)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.GetFileObject(vfs.DefaultDataStreamName)
}

type fileSystem struct {
	vfs.PathHelper
	parent     *pathspec.PathSpec
	image      vfs.FileObject
	byLocation map[string]Volume
	locations  []string
}

func newFileSystem(parent *pathspec.PathSpec, image vfs.FileObject, volumes []Volume) *fileSystem {
	fs := &fileSystem{
		PathHelper: vfs.PathHelper{Separator: "/"},
		parent:     parent,
		image:      image,
		byLocation: make(map[string]Volume),
	}
	for _, v := range volumes {
		loc := location(v.Index)
		fs.byLocation[loc] = v
		fs.locations = append(fs.locations, loc)
	}
	return fs
}

func (fs *fileSystem) Open(ps *pathspec.PathSpec) error { return nil }
func (fs *fileSystem) Close() error                     { return nil }

func (fs *fileSystem) loc(ps *pathspec.PathSpec) string {
	loc := ps.StringAttr("location")
	if loc == "" {
		return vfs.LocationRoot
	}
	return loc
}

func (fs *fileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	loc := fs.loc(ps)
	if loc == vfs.LocationRoot {
		return true, nil
	}
	_, ok := fs.byLocation[loc]
	return ok, nil
}

func (fs *fileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	loc := fs.loc(ps)
	if loc == vfs.LocationRoot {
		return fs.rootEntry(), nil
	}
	v, ok := fs.byLocation[loc]
	if !ok {
		return nil, nil
	}
	return fs.volumeEntry(loc, v), nil
}

func (fs *fileSystem) GetRootFileEntry() (vfs.FileEntry, error) { return fs.rootEntry(), nil }

// NumberOfSubEntries implements vfs.VolumeSystem.
func (fs *fileSystem) NumberOfSubEntries() (int, error) { return len(fs.locations), nil }

// SubEntryPathSpecs implements vfs.VolumeSystem.
func (fs *fileSystem) SubEntryPathSpecs() ([]*pathspec.PathSpec, error) {
	out := make([]*pathspec.PathSpec, 0, len(fs.locations))
	for _, loc := range fs.locations {
		v := fs.byLocation[loc]
		ps, err := pathspec.New(dfvfs.TypeLVM, fs.parent, map[string]interface{}{
			"location":     loc,
			"volume_index": int64(v.Index - 1),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

func (fs *fileSystem) rootEntry() vfs.FileEntry {
	ps, _ := pathspec.New(dfvfs.TypeLVM, fs.parent, nil)
	e := &rootEntry{fs: fs}
	e.Base = vfs.NewBase(ps, "", true, true, func() (*vfs.Stat, error) {
		return &vfs.Stat{Type: vfs.TypeDirectory, IsAllocated: true}, nil
	})
	return e
}

func (fs *fileSystem) volumeEntry(loc string, v Volume) vfs.FileEntry {
	ps, _ := pathspec.New(dfvfs.TypeLVM, fs.parent, map[string]interface{}{
		"location":     loc,
		"volume_index": int64(v.Index - 1),
	})
	e := &volumeEntry{fs: fs, loc: loc, volume: v}
	e.Base = vfs.NewBase(ps, strings.TrimPrefix(loc, "/"), false, false, func() (*vfs.Stat, error) {
		return &vfs.Stat{Type: vfs.TypeFile, Size: v.Size, IsAllocated: true}, nil
	})
	return e
}

type rootEntry struct {
	vfs.Base
	fs *fileSystem
}

func (e *rootEntry) NumberOfDataStreams() (int, error)            { return 0, nil }
func (e *rootEntry) DataStreams() ([]vfs.DataStream, error)       { return nil, nil }
func (e *rootEntry) GetDataStream(string) (vfs.DataStream, error) { return nil, nil }
func (e *rootEntry) GetFileObject(string) (vfs.FileObject, error) { return nil, nil }
func (e *rootEntry) GetParentFileEntry() (vfs.FileEntry, error)   { return nil, nil }

func (e *rootEntry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) {
		return e.fs.SubEntryPathSpecs()
	}), nil
}

type volumeEntry struct {
	vfs.Base
	fs     *fileSystem
	loc    string
	volume Volume
}

func (e *volumeEntry) NumberOfDataStreams() (int, error) { return 1, nil }

func (e *volumeEntry) DataStreams() ([]vfs.DataStream, error) {
	return []vfs.DataStream{vfs.NewSimpleDataStream(vfs.DefaultDataStreamName, func() (vfs.FileObject, error) {
		return e.GetFileObject(vfs.DefaultDataStreamName)
	})}, nil
}

func (e *volumeEntry) GetDataStream(name string) (vfs.DataStream, error) {
	if name != vfs.DefaultDataStreamName {
		return nil, nil
	}
	streams, _ := e.DataStreams()
	return streams[0], nil
}

func (e *volumeEntry) GetFileObject(string) (vfs.FileObject, error) {
	return datarange.New(e.fs.image, e.volume.StartOffset, e.volume.Size)
}

func (e *volumeEntry) GetParentFileEntry() (vfs.FileEntry, error) { return e.fs.rootEntry(), nil }

func (e *volumeEntry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) { return nil, nil }), nil
}
