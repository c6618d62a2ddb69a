// Package stub registers every closed-set type indicator not given a
// full-fidelity driver elsewhere in this module: each gets its path-spec
// constructor, a format specification carrying its best-known signature
// bytes for the scanner, and a resolver helper, so NewFileSystem calls
// in a chain walk still name the right type instead of failing resolver
// lookup — but the helper itself reports NotSupported rather than
// parsing the format.
//
// This mirrors rclone's own "implemented backend list is a subset of
// fs.Find's registry" shape: every backend name rclone knows about is
// registered (so `rclone config` can list it and name-based lookup never
// panics on an unknown remote type), but only some ship full read/write
// support; the rest return fs.ErrorNotImplemented from individual
// methods. Here the boundary is drawn at the file-system/volume-system
// driver level instead of per-method.
package stub

import (
	"fmt"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

// stubbed describes one not-yet-implemented type indicator: its format
// category and the signature(s), if any are confidently known, the
// scanner should use to recognize it.
type stubbed struct {
	typeIndicator dfvfs.TypeIndicator
	category      dfvfs.FormatCategory
	identifier    string
	signatures    []format.Signature
}

var stubs = []stubbed{
	// File systems (§1: full fidelity is reserved for OS; every
	// structured on-disk file system is a stub).
	{dfvfs.TypeTSK, dfvfs.CategoryFileSystem, "tsk_generic", nil},
	{dfvfs.TypeEXT, dfvfs.CategoryFileSystem, "ext", []format.Signature{format.OffsetAt(0x438, []byte{0x53, 0xef})}},
	{dfvfs.TypeNTFS, dfvfs.CategoryFileSystem, "ntfs", []format.Signature{format.OffsetAt(3, []byte("NTFS    "))}},
	{dfvfs.TypeHFS, dfvfs.CategoryFileSystem, "hfsplus", []format.Signature{format.OffsetAt(1024, []byte("H+"))}},
	{dfvfs.TypeAPFS, dfvfs.CategoryFileSystem, "apfs_volume", []format.Signature{format.OffsetAt(32, []byte("APSB"))}},
	{dfvfs.TypeFAT, dfvfs.CategoryFileSystem, "fat32", []format.Signature{format.OffsetAt(0x52, []byte("FAT32   "))}},
	{dfvfs.TypeXFS, dfvfs.CategoryFileSystem, "xfs", []format.Signature{format.OffsetAt(0, []byte("XFSB"))}},

	// Volume systems beyond TSK_PARTITION/GPT (§2 names those two as the
	// full-fidelity representative; APM and the encrypted/logical
	// container systems below are stubs).
	{dfvfs.TypeAPM, dfvfs.CategoryVolumeSystem, "apm", []format.Signature{format.OffsetAt(512, []byte("PM"))}},
	{dfvfs.TypeAPFSContainer, dfvfs.CategoryVolumeSystem, "apfs_container", []format.Signature{format.OffsetAt(32, []byte("NXSB"))}},
	{dfvfs.TypeCS, dfvfs.CategoryVolumeSystem, "corestorage", nil},
	{dfvfs.TypeVShadow, dfvfs.CategoryVolumeSystem, "vshadow", nil},

	// Encrypted volumes beyond BDE (§4.2 gives BDE full fidelity as the
	// encrypted-volume representative).
	{dfvfs.TypeFVDE, dfvfs.CategoryEncryptedStream, "fvde", nil},
	{dfvfs.TypeLUKSDE, dfvfs.CategoryEncryptedStream, "luksde", []format.Signature{format.OffsetAt(0, []byte("LUKS\xba\xbe"))}},

	// Storage media image formats.
	{dfvfs.TypeQCOW, dfvfs.CategoryStorageMediaImage, "qcow", []format.Signature{format.OffsetAt(0, []byte("QFI\xfb"))}},
	{dfvfs.TypeVHDI, dfvfs.CategoryStorageMediaImage, "vhdi", []format.Signature{format.OffsetFromEnd(-512, []byte("conectix"))}},
	{dfvfs.TypeVMDK, dfvfs.CategoryStorageMediaImage, "vmdk", []format.Signature{format.OffsetAt(0, []byte("KDMV"))}},
	{dfvfs.TypeMODI, dfvfs.CategoryStorageMediaImage, "modi", []format.Signature{format.OffsetFromEnd(-512, []byte("koly"))}},
	{dfvfs.TypePHDI, dfvfs.CategoryStorageMediaImage, "phdi", []format.Signature{format.OffsetAt(0, []byte("WithoutFreeSpace"))}},
	{dfvfs.TypeEWF, dfvfs.CategoryStorageMediaImage, "ewf", []format.Signature{format.OffsetAt(0, []byte{0x45, 0x56, 0x46, 0x09, 0x0d, 0x0a, 0xff, 0x00})}},

	// OVERLAY has no on-disk form of its own: it names a synthetic node
	// the resolver's path-spec mangler can graft in (the way MOUNT does),
	// not a format the scanner ever matches.
	{dfvfs.TypeOverlay, dfvfs.CategoryFileSystem, "", nil},
}

func init() {
	for _, s := range stubs {
		s := s
		_ = pathspec.Default.Register(s.typeIndicator)
		h := &Helper{typeIndicator: s.typeIndicator}
		_ = resolver.Default.RegisterFileSystemHelper(h)
		_ = resolver.Default.RegisterFileObjectHelper(h)
		if len(s.signatures) > 0 {
			_ = format.StoreFor(s.category).AddSpecification(&format.Specification{
				Identifier:    s.identifier,
				TypeIndicator: s.typeIndicator,
				Category:      s.category,
				Signatures:    s.signatures,
			})
		}
	}
}

// Helper reports NotSupported for every operation; it exists purely so
// the type indicator resolves to a registered driver instead of failing
// resolver lookup with a "no helper registered" PathSpecError.
type Helper struct {
	typeIndicator dfvfs.TypeIndicator
}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return h.typeIndicator }

func (h *Helper) notSupported() error {
	return &dfvfs.NotSupportedError{
		Kind:   dfvfs.NotSupportedMissingDriver,
		Reason: fmt.Sprintf("%s support is not implemented", h.typeIndicator),
	}
}

// NewFileSystem implements resolver.FileSystemHelper.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	return nil, h.notSupported()
}

// NewFileObject implements resolver.FileObjectHelper.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	return nil, h.notSupported()
}
