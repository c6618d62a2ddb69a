// Package partition implements the two partition-table volume systems in
// the closed type-indicator set: TSK_PARTITION (the sleuthkit-style
// generic name dfvfs gives an MBR-addressed partition table) and GPT.
// Both expose the same shape: a root that enumerates fixed-size
// partitions, each a DATA_RANGE slice of the parent storage media image.
//
// None of the examples in the retrieval pack vendor an MBR/GPT parser
// (rclone has no reason to), so both table formats are parsed directly
// off the sector bytes with encoding/binary, the way the pack's own
// archive/format headers (TAR, CPIO) are parsed directly off their
// stdlib package's structs rather than through a third-party disk
// library — there is no ecosystem library in the retrieved set to prefer
// over this.
package partition

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/log2timeline/godfvfs/backend/datarange"
	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

const sectorSize = int64(512)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeTSKPartition)
	_ = pathspec.Default.Register(dfvfs.TypeGPT)

	h := &Helper{}
	_ = resolver.Default.RegisterFileSystemHelper(h)
	_ = resolver.Default.RegisterFileObjectHelper(h)
	gh := &gptOnlyHelper{Helper: h}
	_ = resolver.Default.RegisterFileSystemHelper(gh)
	_ = resolver.Default.RegisterFileObjectHelper(gh)

	store := format.StoreFor(dfvfs.CategoryVolumeSystem)
	_ = store.AddSpecification(&format.Specification{
		Identifier:    "mbr",
		TypeIndicator: dfvfs.TypeTSKPartition,
		Category:      dfvfs.CategoryVolumeSystem,
		Signatures:    []format.Signature{format.OffsetAt(510, []byte{0x55, 0xaa})},
	})
	_ = store.AddSpecification(&format.Specification{
		Identifier:    "gpt",
		TypeIndicator: dfvfs.TypeGPT,
		Category:      dfvfs.CategoryVolumeSystem,
		Signatures:    []format.Signature{format.OffsetAt(512, []byte("EFI PART"))},
	})
}

// Entry is one parsed partition table row: a byte range on the parent
// image and the table's own 1-based index (used for the "/p<N>" location;
// the index path-spec attribute is Index-1). TypeGUID and UniqueGUID are
// set only for GPT entries; an MBR row leaves them zero.
type Entry struct {
	Index       int
	StartOffset int64
	Size        int64
	TypeGUID    uuid.UUID
	UniqueGUID  uuid.UUID
}

// guidToUUID converts a GPT on-disk GUID, whose first three fields are
// little-endian, to the big-endian byte layout uuid.UUID expects.
func guidToUUID(b []byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:16], b[8:16])
	return u
}

// readMBR parses the legacy 4-entry primary partition table at sector 0.
// Extended/logical partition chains are not followed: the common case in
// forensic acquisitions is a small number of primary partitions or a
// protective MBR in front of GPT, and EBR chain-walking is not required
// to satisfy a GPT-or-MBR volume system.
func readMBR(parent vfs.FileObject) ([]Entry, error) {
	buf := make([]byte, sectorSize)
	if _, err := parent.Seek(0, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	if _, err := io.ReadFull(parent, buf); err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	if buf[510] != 0x55 || buf[511] != 0xaa {
		return nil, &dfvfs.FormatError{Reason: "missing MBR boot signature"}
	}

	var entries []Entry
	for i := 0; i < 4; i++ {
		off := 446 + i*16
		row := buf[off : off+16]
		partType := row[4]
		if partType == 0x00 {
			continue
		}
		startLBA := binary.LittleEndian.Uint32(row[8:12])
		numSectors := binary.LittleEndian.Uint32(row[12:16])
		if numSectors == 0 {
			continue
		}
		entries = append(entries, Entry{
			Index:       i + 1,
			StartOffset: int64(startLBA) * sectorSize,
			Size:        int64(numSectors) * sectorSize,
		})
	}
	return entries, nil
}

// readGPT parses the primary GPT header at LBA 1 and its partition entry
// array. The backup header/array is never consulted: repairing a GPT from
// its backup copy is a recovery operation out of scope for a read-only
// volume-system view.
func readGPT(parent vfs.FileObject) ([]Entry, error) {
	header := make([]byte, sectorSize)
	if _, err := parent.Seek(sectorSize, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(sectorSize, err)
	}
	if _, err := io.ReadFull(parent, header); err != nil {
		return nil, dfvfs.NewIOError(sectorSize, err)
	}
	if string(header[0:8]) != "EFI PART" {
		return nil, &dfvfs.FormatError{Reason: "missing GPT signature"}
	}

	entryLBA := int64(binary.LittleEndian.Uint64(header[72:80]))
	numEntries := binary.LittleEndian.Uint32(header[80:84])
	entrySize := binary.LittleEndian.Uint32(header[84:88])
	if entrySize < 128 || numEntries == 0 || numEntries > 1<<20 {
		return nil, &dfvfs.FormatError{Reason: fmt.Sprintf("implausible GPT entry table: %d x %d", numEntries, entrySize)}
	}

	tableSize := int64(numEntries) * int64(entrySize)
	table := make([]byte, tableSize)
	if _, err := parent.Seek(entryLBA*sectorSize, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(entryLBA*sectorSize, err)
	}
	if _, err := io.ReadFull(parent, table); err != nil {
		return nil, dfvfs.NewIOError(entryLBA*sectorSize, err)
	}

	var entries []Entry
	for i := uint32(0); i < numEntries; i++ {
		row := table[int64(i)*int64(entrySize) : int64(i)*int64(entrySize)+int64(entrySize)]
		typeGUID := row[0:16]
		allZero := true
		for _, b := range typeGUID {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			continue
		}
		uniqueGUID := row[16:32]
		startLBA := binary.LittleEndian.Uint64(row[32:40])
		endLBA := binary.LittleEndian.Uint64(row[40:48])
		if endLBA < startLBA {
			continue
		}
		entries = append(entries, Entry{
			Index:       int(i) + 1,
			StartOffset: int64(startLBA) * sectorSize,
			Size:        (int64(endLBA) - int64(startLBA) + 1) * sectorSize,
			TypeGUID:    guidToUUID(typeGUID),
			UniqueGUID:  guidToUUID(uniqueGUID),
		})
	}
	return entries, nil
}

func location(index int) string { return fmt.Sprintf("/p%d", index) }

// indexAttr names the per-entry index attribute: TSK_PARTITION calls it
// part_index, GPT calls it entry_index, per the attribute table each type
// indicator is registered with.
func indexAttr(t dfvfs.TypeIndicator) string {
	if t == dfvfs.TypeGPT {
		return "entry_index"
	}
	return "part_index"
}

// Helper constructs the TSK_PARTITION (MBR) volume system.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeTSKPartition }

// NewFileSystem implements resolver.FileSystemHelper.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileSystem", dfvfs.ErrMissingParent)
	}
	entries, err := readMBR(parent)
	if err != nil {
		return nil, err
	}
	return newVolumeSystem(dfvfs.TypeTSKPartition, ps.GetParent(), parent, entries), nil
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

// gptOnlyHelper reuses Helper's volume-system machinery for TypeGPT,
// parsing the GUID partition table instead of the legacy MBR.
type gptOnlyHelper struct{ *Helper }

// TypeIndicator implements resolver.Helper.
func (h *gptOnlyHelper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeGPT }

// NewFileSystem implements resolver.FileSystemHelper.
func (h *gptOnlyHelper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileSystem", dfvfs.ErrMissingParent)
	}
	entries, err := readGPT(parent)
	if err != nil {
		return nil, err
	}
	return newVolumeSystem(dfvfs.TypeGPT, ps.GetParent(), parent, entries), nil
}

// NewFileObject implements resolver.FileObjectHelper.
func (h *gptOnlyHelper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
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

// volumeSystem implements vfs.VolumeSystem for a fixed partition list.
type volumeSystem struct {
	vfs.PathHelper
	typeIndicator dfvfs.TypeIndicator
	parent        *pathspec.PathSpec
	image         vfs.FileObject
	byLocation    map[string]Entry
	locations     []string
}

func newVolumeSystem(t dfvfs.TypeIndicator, parent *pathspec.PathSpec, image vfs.FileObject, entries []Entry) *volumeSystem {
	vs := &volumeSystem{
		PathHelper:    vfs.PathHelper{Separator: "/"},
		typeIndicator: t,
		parent:        parent,
		image:         image,
		byLocation:    make(map[string]Entry),
	}
	for _, e := range entries {
		loc := location(e.Index)
		vs.byLocation[loc] = e
		vs.locations = append(vs.locations, loc)
	}
	return vs
}

// Open implements vfs.FileSystem.
func (vs *volumeSystem) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (vs *volumeSystem) Close() error { return nil }

func (vs *volumeSystem) loc(ps *pathspec.PathSpec) string {
	loc := ps.StringAttr("location")
	if loc == "" {
		return vfs.LocationRoot
	}
	return loc
}

// FileEntryExistsByPathSpec implements vfs.FileSystem.
func (vs *volumeSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	loc := vs.loc(ps)
	if loc == vfs.LocationRoot {
		return true, nil
	}
	_, ok := vs.byLocation[loc]
	return ok, nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (vs *volumeSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	loc := vs.loc(ps)
	if loc == vfs.LocationRoot {
		return vs.rootEntry(), nil
	}
	e, ok := vs.byLocation[loc]
	if !ok {
		return nil, nil
	}
	return vs.partitionEntry(loc, e), nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (vs *volumeSystem) GetRootFileEntry() (vfs.FileEntry, error) { return vs.rootEntry(), nil }

// NumberOfSubEntries implements vfs.VolumeSystem.
func (vs *volumeSystem) NumberOfSubEntries() (int, error) { return len(vs.locations), nil }

// SubEntryPathSpecs implements vfs.VolumeSystem.
func (vs *volumeSystem) SubEntryPathSpecs() ([]*pathspec.PathSpec, error) {
	out := make([]*pathspec.PathSpec, 0, len(vs.locations))
	for _, loc := range vs.locations {
		e := vs.byLocation[loc]
		attrs := map[string]interface{}{
			"location":     loc,
			"start_offset": e.StartOffset,
		}
		attrs[indexAttr(vs.typeIndicator)] = int64(e.Index - 1)
		if vs.typeIndicator == dfvfs.TypeGPT {
			attrs["type_guid"] = e.TypeGUID.String()
			attrs["unique_guid"] = e.UniqueGUID.String()
		}
		ps, err := pathspec.New(vs.typeIndicator, vs.parent, attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

func (vs *volumeSystem) rootEntry() vfs.FileEntry {
	ps, _ := pathspec.New(vs.typeIndicator, vs.parent, nil)
	e := &rootEntry{vs: vs}
	e.Base = vfs.NewBase(ps, "", true, true, func() (*vfs.Stat, error) {
		return &vfs.Stat{Type: vfs.TypeDirectory, IsAllocated: true}, nil
	})
	return e
}

func (vs *volumeSystem) partitionEntry(loc string, e Entry) vfs.FileEntry {
	attrs := map[string]interface{}{
		"location":     loc,
		"start_offset": e.StartOffset,
	}
	attrs[indexAttr(vs.typeIndicator)] = int64(e.Index - 1)
	if vs.typeIndicator == dfvfs.TypeGPT {
		attrs["type_guid"] = e.TypeGUID.String()
		attrs["unique_guid"] = e.UniqueGUID.String()
	}
	ps, _ := pathspec.New(vs.typeIndicator, vs.parent, attrs)
	pe := &partitionEntry{vs: vs, loc: loc, entry: e}
	pe.Base = vfs.NewBase(ps, strings.TrimPrefix(loc, "/"), false, false, func() (*vfs.Stat, error) {
		return &vfs.Stat{Type: vfs.TypeFile, Size: e.Size, IsAllocated: true}, nil
	})
	return pe
}

type rootEntry struct {
	vfs.Base
	vs *volumeSystem
}

func (e *rootEntry) NumberOfDataStreams() (int, error)            { return 0, nil }
func (e *rootEntry) DataStreams() ([]vfs.DataStream, error)       { return nil, nil }
func (e *rootEntry) GetDataStream(string) (vfs.DataStream, error) { return nil, nil }
func (e *rootEntry) GetFileObject(string) (vfs.FileObject, error) { return nil, nil }
func (e *rootEntry) GetParentFileEntry() (vfs.FileEntry, error)   { return nil, nil }

func (e *rootEntry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) {
		return e.vs.SubEntryPathSpecs()
	}), nil
}

type partitionEntry struct {
	vfs.Base
	vs    *volumeSystem
	loc   string
	entry Entry
}

func (e *partitionEntry) NumberOfDataStreams() (int, error) { return 1, nil }

func (e *partitionEntry) DataStreams() ([]vfs.DataStream, error) {
	return []vfs.DataStream{vfs.NewSimpleDataStream(vfs.DefaultDataStreamName, func() (vfs.FileObject, error) {
		return e.GetFileObject(vfs.DefaultDataStreamName)
	})}, nil
}

func (e *partitionEntry) GetDataStream(name string) (vfs.DataStream, error) {
	if name != vfs.DefaultDataStreamName {
		return nil, nil
	}
	streams, _ := e.DataStreams()
	return streams[0], nil
}

func (e *partitionEntry) GetFileObject(string) (vfs.FileObject, error) {
	return datarange.New(e.vs.image, e.entry.StartOffset, e.entry.Size)
}

func (e *partitionEntry) GetParentFileEntry() (vfs.FileEntry, error) { return e.vs.rootEntry(), nil }

func (e *partitionEntry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) { return nil, nil }), nil
}
