package all

import (
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/stretchr/testify/assert"
)

// allTypeIndicators mirrors the closed set in dfvfs/types.go: importing
// this package must leave every one of them registered, whether by a
// full-fidelity driver or by backend/stub.
var allTypeIndicators = []dfvfs.TypeIndicator{
	dfvfs.TypeOS, dfvfs.TypeRaw, dfvfs.TypeTSK, dfvfs.TypeEXT, dfvfs.TypeNTFS,
	dfvfs.TypeHFS, dfvfs.TypeAPFS, dfvfs.TypeFAT, dfvfs.TypeXFS,
	dfvfs.TypeTSKPartition, dfvfs.TypeGPT, dfvfs.TypeAPM, dfvfs.TypeLVM,
	dfvfs.TypeAPFSContainer, dfvfs.TypeCS, dfvfs.TypeBDE, dfvfs.TypeFVDE,
	dfvfs.TypeLUKSDE, dfvfs.TypeVShadow, dfvfs.TypeQCOW, dfvfs.TypeVHDI,
	dfvfs.TypeVMDK, dfvfs.TypeMODI, dfvfs.TypePHDI, dfvfs.TypeEWF,
	dfvfs.TypeCPIO, dfvfs.TypeTAR, dfvfs.TypeZIP, dfvfs.TypeGZIP,
	dfvfs.TypeBZIP2, dfvfs.TypeXZ, dfvfs.TypeCompressedStream,
	dfvfs.TypeEncryptedStream, dfvfs.TypeEncodedStream, dfvfs.TypeDataRange,
	dfvfs.TypeSQLiteBlob, dfvfs.TypeFake, dfvfs.TypeMount, dfvfs.TypeOverlay,
}

func TestImportingAllRegistersEveryTypeIndicator(t *testing.T) {
	for _, ti := range allTypeIndicators {
		assert.True(t, pathspec.Default.IsRegistered(ti), "%s was not registered by backend/all", ti)
	}
}
