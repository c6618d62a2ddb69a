package archive

import (
	"io"

	"github.com/cavaliercoder/go-cpio"

	"github.com/log2timeline/godfvfs/backend/datarange"
	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeCPIO)
	h := &CpioHelper{}
	_ = resolver.Default.RegisterFileObjectHelper(h)
	_ = resolver.Default.RegisterFileSystemHelper(h)

	store := format.StoreFor(dfvfs.CategoryArchive)
	_ = store.AddSpecification(&format.Specification{
		Identifier:    "cpio_newc",
		TypeIndicator: dfvfs.TypeCPIO,
		Category:      dfvfs.CategoryArchive,
		Signatures:    []format.Signature{format.OffsetAt(0, []byte("070701"))},
	})
	_ = store.AddSpecification(&format.Specification{
		Identifier:    "cpio_odc",
		TypeIndicator: dfvfs.TypeCPIO,
		Category:      dfvfs.CategoryArchive,
		Signatures:    []format.Signature{format.OffsetAt(0, []byte("070707"))},
	})
}

// CpioHelper constructs the FileSystem/FileObject for CPIO path specs.
type CpioHelper struct{}

// TypeIndicator implements resolver.Helper.
func (h *CpioHelper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeCPIO }

// NewFileSystem implements resolver.FileSystemHelper: CPIO, like TAR, is
// a flat sequential stream with no directory index, so it is scanned
// once in full.
func (h *CpioHelper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileSystem", dfvfs.ErrMissingParent)
	}
	members, err := scanCpio(parent)
	if err != nil {
		return nil, err
	}
	return NewFS(dfvfs.TypeCPIO, ps.GetParent(), members), nil
}

// NewFileObject implements resolver.FileObjectHelper.
func (h *CpioHelper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
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

func scanCpio(parent vfs.FileObject) ([]Member, error) {
	if _, err := parent.Seek(0, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	cr := &countingReader{r: parent}
	r := cpio.NewReader(cr)

	var members []Member
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeCPIO, Reason: err.Error()}
		}
		if hdr.Name == "TRAILER!!!" {
			continue
		}
		offset := cr.count
		size := hdr.Size
		isDir := hdr.Mode.IsDir()
		members = append(members, Member{
			Name:  hdr.Name,
			Size:  size,
			Mode:  uint32(hdr.Mode.Perm()),
			Mtime: hdr.ModTime,
			IsDir: isDir,
			Open: func() (vfs.FileObject, error) {
				return datarange.New(parent, offset, size)
			},
		})
	}
	return members, nil
}
