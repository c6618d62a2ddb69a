package pathspec

import (
	"encoding/json"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func osSpec(t *testing.T, location string) *PathSpec {
	t.Helper()
	ps, err := New(dfvfs.TypeOS, nil, map[string]interface{}{"location": location})
	require.NoError(t, err)
	return ps
}

func TestNewRootRejectsParent(t *testing.T) {
	os1 := osSpec(t, "/image.raw")
	_, err := New(dfvfs.TypeOS, os1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, dfvfs.ErrUnexpectedParent)
}

func TestNewChildRequiresParent(t *testing.T) {
	_, err := New(dfvfs.TypeTAR, nil, map[string]interface{}{"location": "/syslog"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dfvfs.ErrMissingParent)
}

func TestNewUnknownAttribute(t *testing.T) {
	os1 := osSpec(t, "/image.raw")
	_, err := New(dfvfs.TypeTAR, os1, map[string]interface{}{"bogus": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, dfvfs.ErrUnknownAttribute)
}

func TestParentChildTypes(t *testing.T) {
	os1 := osSpec(t, "/image.raw")
	tar, err := New(dfvfs.TypeTAR, os1, map[string]interface{}{"location": "/syslog"})
	require.NoError(t, err)

	require.NotNil(t, tar.GetParent())
	assert.Equal(t, dfvfs.TypeOS, tar.GetParent().TypeIndicator())
	assert.Equal(t, dfvfs.TypeTAR, tar.TypeIndicator())
	assert.Equal(t, os1, tar.GetRoot())
}

func TestComparableOrderIndependent(t *testing.T) {
	os1 := osSpec(t, "/image.raw")
	a, err := New(dfvfs.TypeTSKPartition, os1, map[string]interface{}{
		"location": "/p2", "part_index": int64(2), "start_offset": int64(0x100000),
	})
	require.NoError(t, err)

	// Same attributes, constructed via a map built in a different key
	// order: Go map iteration order is random, so this already exercises
	// equal path specs built in different construction orders.
	b, err := New(dfvfs.TypeTSKPartition, os1, map[string]interface{}{
		"start_offset": int64(0x100000), "location": "/p2", "part_index": int64(2),
	})
	require.NoError(t, err)

	assert.Equal(t, a.Comparable(), b.Comparable())
	assert.True(t, a.Equal(b))
}

func TestComparableHexOffsets(t *testing.T) {
	os1 := osSpec(t, "/image.raw")
	p, err := New(dfvfs.TypeTSKPartition, os1, map[string]interface{}{
		"location": "/p2", "start_offset": int64(0x100000),
	})
	require.NoError(t, err)
	assert.Contains(t, p.Comparable(), "start_offset: 0x00100000")
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register(dfvfs.TypeOS))
	require.NoError(t, f.Register(dfvfs.TypeTAR))

	os1, err := f.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/image.raw"})
	require.NoError(t, err)
	tar, err := f.New(dfvfs.TypeTAR, os1, map[string]interface{}{"location": "/syslog"})
	require.NoError(t, err)

	obj, err := tar.Serialize()
	require.NoError(t, err)

	raw, err := json.Marshal(obj)
	require.NoError(t, err)

	back, err := DeserializeJSON(f, raw)
	require.NoError(t, err)

	assert.Equal(t, tar.Comparable(), back.Comparable())
	assert.True(t, tar.Equal(back))
}

func TestFactoryRegisterTwiceIsKeyError(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register(dfvfs.TypeOS))
	err := f.Register(dfvfs.TypeOS)
	require.Error(t, err)
	var keyErr *ErrKeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestFactoryDeregisterUnregisteredIsKeyError(t *testing.T) {
	f := NewFactory()
	err := f.Deregister(dfvfs.TypeOS)
	require.Error(t, err)
	var keyErr *ErrKeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestCopyOverridesAttribute(t *testing.T) {
	os1 := osSpec(t, "/image.raw")
	tar, err := New(dfvfs.TypeTAR, os1, map[string]interface{}{"location": "/syslog"})
	require.NoError(t, err)

	other, err := tar.Copy(map[string]interface{}{"location": "/other"})
	require.NoError(t, err)
	assert.Equal(t, "/other", other.StringAttr("location"))
	assert.Equal(t, "/syslog", tar.StringAttr("location"))
}
