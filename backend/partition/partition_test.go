package partition

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObject struct {
	vfs.OffsetTracker
	data []byte
}

func (m *memObject) Size() (int64, error) { return int64(len(m.data)), nil }

func (m *memObject) Read(p []byte) (int, error) {
	off := m.Offset()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	m.Advance(n)
	return n, nil
}

func (m *memObject) Seek(offset int64, whence int) (int64, error) {
	return m.OffsetTracker.Seek(offset, whence, int64(len(m.data)))
}

func (m *memObject) Close() error { return nil }

// buildMBR constructs a disk image with a boot sector carrying one
// primary partition entry starting at startLBA for numSectors sectors.
func buildMBR(startLBA, numSectors uint32) []byte {
	buf := make([]byte, sectorSize*(int64(startLBA)+int64(numSectors)))
	row := buf[446:462]
	row[4] = 0x83 // Linux partition type
	binary.LittleEndian.PutUint32(row[8:12], startLBA)
	binary.LittleEndian.PutUint32(row[12:16], numSectors)
	buf[510] = 0x55
	buf[511] = 0xaa
	return buf
}

func osSpec(t *testing.T) *pathspec.PathSpec {
	t.Helper()
	ps, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/image.raw"})
	require.NoError(t, err)
	return ps
}

func TestReadMBRParsesPrimaryEntry(t *testing.T) {
	img := &memObject{data: buildMBR(2048, 100)}
	entries, err := readMBR(img)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Index)
	assert.Equal(t, int64(2048)*sectorSize, entries[0].StartOffset)
	assert.Equal(t, int64(100)*sectorSize, entries[0].Size)
}

func TestReadMBRMissingSignature(t *testing.T) {
	img := &memObject{data: make([]byte, sectorSize)}
	_, err := readMBR(img)
	require.Error(t, err)
	var fe *dfvfs.FormatError
	require.ErrorAs(t, err, &fe)
}

func TestTSKPartitionFileSystemListsSubEntries(t *testing.T) {
	parent := osSpec(t)
	img := &memObject{data: buildMBR(2048, 100)}

	h := &Helper{}
	ps, err := pathspec.New(dfvfs.TypeTSKPartition, parent, nil)
	require.NoError(t, err)
	fs, err := h.NewFileSystem(ps, img, nil)
	require.NoError(t, err)

	vs, ok := fs.(vfs.VolumeSystem)
	require.True(t, ok)
	n, err := vs.NumberOfSubEntries()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	specs, err := vs.SubEntryPathSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "/p1", specs[0].StringAttr("location"))
	assert.Equal(t, int64(0), specs[0].IntAttr("part_index"))

	root, err := fs.GetRootFileEntry()
	require.NoError(t, err)
	assert.True(t, root.IsDirectory())

	entry, err := fs.GetFileEntryByPathSpec(specs[0])
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsFile())

	obj, err := entry.GetFileObject(vfs.DefaultDataStreamName)
	require.NoError(t, err)
	size, err := obj.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(100)*sectorSize, size)
}

// buildGPT constructs a minimal disk image with a protective MBR-less GPT
// header at LBA 1 and a single 128-byte partition entry at LBA 2.
func buildGPT(startLBA, endLBA uint64) []byte {
	total := sectorSize * int64(endLBA+2)
	buf := make([]byte, total)
	header := buf[sectorSize : sectorSize*2]
	copy(header[0:8], "EFI PART")
	binary.LittleEndian.PutUint64(header[72:80], 2) // entries start at LBA 2
	binary.LittleEndian.PutUint32(header[80:84], 1)  // one entry
	binary.LittleEndian.PutUint32(header[84:88], 128)

	entry := buf[sectorSize*2 : sectorSize*2+128]
	typeGUID := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	uniqueGUID := []byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20}
	copy(entry[0:16], typeGUID)
	copy(entry[16:32], uniqueGUID)
	binary.LittleEndian.PutUint64(entry[32:40], startLBA)
	binary.LittleEndian.PutUint64(entry[40:48], endLBA)
	return buf
}

func TestReadGPTParsesEntryAndGUIDs(t *testing.T) {
	img := &memObject{data: buildGPT(10, 109)}
	entries, err := readGPT(img)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10)*sectorSize, entries[0].StartOffset)
	assert.Equal(t, int64(100)*sectorSize, entries[0].Size)
	assert.Equal(t, "04030201-0605-0807-090a-0b0c0d0e0f10", entries[0].TypeGUID.String())
	assert.Equal(t, "14131211-1615-1817-191a-1b1c1d1e1f20", entries[0].UniqueGUID.String())
}

func TestGPTFileSystemExposesGUIDAttributes(t *testing.T) {
	parent := osSpec(t)
	img := &memObject{data: buildGPT(10, 109)}

	h := &Helper{}
	gh := &gptOnlyHelper{Helper: h}
	ps, err := pathspec.New(dfvfs.TypeGPT, parent, nil)
	require.NoError(t, err)
	fs, err := gh.NewFileSystem(ps, img, nil)
	require.NoError(t, err)

	vs := fs.(vfs.VolumeSystem)
	specs, err := vs.SubEntryPathSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, int64(0), specs[0].IntAttr("entry_index"))
	assert.NotEmpty(t, specs[0].StringAttr("type_guid"))
	assert.NotEmpty(t, specs[0].StringAttr("unique_guid"))
}
