package lvm

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
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

const sampleMetadata = `
vg0 {
	id = "abc123"
	extent_size = 8192
	physical_volumes {
		pv0 {
			pe_start = 2048
		}
	}
	logical_volumes {
		root {
			id = "lv-root"
			segment_count = 1
			segment1 {
				start_extent = 0
				extent_count = 10
				type = "linear"
			}
		}
		swap {
			id = "lv-swap"
			segment_count = 1
			segment1 {
				start_extent = 10
				extent_count = 4
				type = "linear"
			}
		}
		striped0 {
			segment_count = 1
			segment1 {
				start_extent = 14
				extent_count = 2
				type = "striped"
				stripe_count = 2
			}
		}
	}
}
`

func TestParseMetadataExtractsLinearVolumes(t *testing.T) {
	volumes, err := parseMetadata(sampleMetadata)
	require.NoError(t, err)
	require.Len(t, volumes, 2, "striped0 must be skipped")

	assert.Equal(t, "root", volumes[0].Name)
	assert.Equal(t, int64(2048)*sectorSize, volumes[0].StartOffset)
	assert.Equal(t, int64(10*8192)*sectorSize, volumes[0].Size)

	assert.Equal(t, "swap", volumes[1].Name)
	assert.Equal(t, int64(2048+10*8192)*sectorSize, volumes[1].StartOffset)
	assert.Equal(t, int64(4*8192)*sectorSize, volumes[1].Size)

	for _, v := range volumes {
		assert.NotEqual(t, "striped0", v.Name)
	}
}

func TestParseMetadataMissingExtentSize(t *testing.T) {
	_, err := parseMetadata(`vg0 { logical_volumes { } }`)
	require.Error(t, err)
}

func TestParseMetadataNoLogicalVolumesBlock(t *testing.T) {
	volumes, err := parseMetadata(`vg0 { extent_size = 8192 }`)
	require.NoError(t, err)
	assert.Nil(t, volumes)
}

func TestExtractBlockBalancesNestedBraces(t *testing.T) {
	body, ok := extractBlock(`outer { a { x = 1 } b { y = 2 } }`, "outer")
	require.True(t, ok)
	assert.Equal(t, ` a { x = 1 } b { y = 2 } `, body)
}

func TestTopLevelStanzasSplitsChildren(t *testing.T) {
	stanzas := topLevelStanzas(`first { a = 1 } second { b = 2 }`)
	require.Len(t, stanzas, 2)
	assert.Equal(t, "first", stanzas[0].Name)
	assert.Equal(t, "second", stanzas[1].Name)
}

func TestReadDiskAreaListStopsAtTerminator(t *testing.T) {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint64(buf[0:8], 4096)
	binary.LittleEndian.PutUint64(buf[8:16], 1024)
	binary.LittleEndian.PutUint64(buf[16:24], 8192)
	binary.LittleEndian.PutUint64(buf[24:32], 2048)
	// bytes 32:48 are zero, terminating the list.

	areas, next := readDiskAreaList(buf, 0)
	require.Len(t, areas, 2)
	assert.Equal(t, int64(4096), areas[0].Offset)
	assert.Equal(t, int64(1024), areas[0].Size)
	assert.Equal(t, int64(8192), areas[1].Offset)
	assert.Equal(t, int64(2048), areas[1].Size)
	assert.Equal(t, 48, next)
}

func TestReadLabelMissingSignature(t *testing.T) {
	img := &memObject{data: make([]byte, sectorSize*2)}
	_, err := readLabel(img)
	require.Error(t, err)
	var fe *dfvfs.FormatError
	require.ErrorAs(t, err, &fe)
}
