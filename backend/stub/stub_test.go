package stub

import (
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEveryStubIsRegistered confirms init() registered each stub's type
// indicator exactly once with every registry: a second registration
// attempt must fail with ErrKeyError rather than silently succeeding
// (which would mean the first registration never happened).
func TestEveryStubIsRegistered(t *testing.T) {
	for _, s := range stubs {
		assert.True(t, pathspec.Default.IsRegistered(s.typeIndicator), "%s not registered with pathspec.Default", s.typeIndicator)

		err := resolver.Default.RegisterFileSystemHelper(&Helper{typeIndicator: s.typeIndicator})
		require.Error(t, err, "%s has no file system helper registered", s.typeIndicator)
		var fsKeyErr *resolver.ErrKeyError
		require.ErrorAs(t, err, &fsKeyErr)

		err = resolver.Default.RegisterFileObjectHelper(&Helper{typeIndicator: s.typeIndicator})
		require.Error(t, err, "%s has no file object helper registered", s.typeIndicator)
		var objKeyErr *resolver.ErrKeyError
		require.ErrorAs(t, err, &objKeyErr)
	}
}

func TestNewFileSystemReportsNotSupported(t *testing.T) {
	for _, s := range stubs {
		h := &Helper{typeIndicator: s.typeIndicator}
		_, err := h.NewFileSystem(nil, nil, nil)
		require.Error(t, err)
		var nse *dfvfs.NotSupportedError
		require.ErrorAs(t, err, &nse)
		assert.Equal(t, dfvfs.NotSupportedMissingDriver, nse.Kind)
	}
}

func TestNewFileObjectReportsNotSupported(t *testing.T) {
	for _, s := range stubs {
		h := &Helper{typeIndicator: s.typeIndicator}
		_, err := h.NewFileObject(nil, nil, nil)
		require.Error(t, err)
		var nse *dfvfs.NotSupportedError
		require.ErrorAs(t, err, &nse)
		assert.Equal(t, dfvfs.NotSupportedMissingDriver, nse.Kind)
	}
}
