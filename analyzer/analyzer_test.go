package analyzer

import (
	"bytes"
	"io"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type byteObject struct {
	vfs.OffsetTracker
	data []byte
}

func newByteObject(data []byte) *byteObject { return &byteObject{data: data} }

func (b *byteObject) Read(p []byte) (int, error) {
	off := b.Offset()
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	b.Advance(n)
	return n, nil
}
func (b *byteObject) Seek(offset int64, whence int) (int64, error) {
	size, _ := b.Size()
	return b.OffsetTracker.Seek(offset, whence, size)
}
func (b *byteObject) Close() error         { return nil }
func (b *byteObject) Size() (int64, error) { return int64(len(b.data)), nil }

func TestIdentifyByScannerSignature(t *testing.T) {
	store := format.NewStore(dfvfs.CategoryFileSystem)
	require.NoError(t, store.AddSpecification(&format.Specification{
		Identifier:    "ext",
		TypeIndicator: dfvfs.TypeEXT,
		Category:      dfvfs.CategoryFileSystem,
		Signatures:    []format.Signature{format.OffsetAt(0x438, []byte{0x53, 0xef})},
	}))
	a := New(store)

	data := make([]byte, 0x438+2)
	data[0x438] = 0x53
	data[0x439] = 0xef

	results, err := a.Identify(newByteObject(data), format.ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []dfvfs.TypeIndicator{dfvfs.TypeEXT}, results)
}

type fixedHelper struct {
	t  dfvfs.TypeIndicator
	ok bool
}

func (h *fixedHelper) TypeIndicator() dfvfs.TypeIndicator { return h.t }
func (h *fixedHelper) Analyze(obj vfs.FileObject) (dfvfs.TypeIndicator, bool, error) {
	return h.t, h.ok, nil
}

func TestIdentifyFallsBackToHelperWhenScannerEmpty(t *testing.T) {
	store := format.NewStore(dfvfs.CategoryFileSystem)
	a := New(store)
	a.RegisterHelper(&fixedHelper{t: dfvfs.TypeTSK, ok: false})
	a.RegisterHelper(&fixedHelper{t: dfvfs.TypeXFS, ok: true})

	results, err := a.Identify(newByteObject(bytes.Repeat([]byte{0}, 16)), format.ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []dfvfs.TypeIndicator{dfvfs.TypeXFS}, results)
}

func TestIdentifyNoMatchReturnsEmpty(t *testing.T) {
	store := format.NewStore(dfvfs.CategoryFileSystem)
	a := New(store)
	results, err := a.Identify(newByteObject([]byte{0, 0, 0, 0}), format.ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
