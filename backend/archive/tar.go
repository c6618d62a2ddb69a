package archive

import (
	"archive/tar"
	"io"

	"github.com/log2timeline/godfvfs/backend/datarange"
	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeTAR)
	h := &TarHelper{}
	_ = resolver.Default.RegisterFileObjectHelper(h)
	_ = resolver.Default.RegisterFileSystemHelper(h)

	_ = format.StoreFor(dfvfs.CategoryArchive).AddSpecification(&format.Specification{
		Identifier:    "tar",
		TypeIndicator: dfvfs.TypeTAR,
		Category:      dfvfs.CategoryArchive,
		Signatures:    []format.Signature{format.OffsetAt(257, []byte("ustar"))},
	})
}

// TarHelper constructs the FileSystem/FileObject for TAR path specs.
type TarHelper struct{}

// TypeIndicator implements resolver.Helper.
func (h *TarHelper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeTAR }

// NewFileSystem implements resolver.FileSystemHelper: the whole archive
// is scanned once, since TAR has no directory index to consult lazily.
func (h *TarHelper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileSystem", dfvfs.ErrMissingParent)
	}
	members, err := scanTar(parent)
	if err != nil {
		return nil, err
	}
	return NewFS(dfvfs.TypeTAR, ps.GetParent(), members), nil
}

// NewFileObject implements resolver.FileObjectHelper: looks the member
// named by ps up in a freshly scanned FileSystem and opens its default
// stream.
func (h *TarHelper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
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

// countingReader wraps parent, tracking total bytes consumed so each
// tar.Header's data start offset can be recovered as the count at the
// point tr.Next() returns it (archive/tar reads exactly one header block
// then skips to the next one on the following Next() call).
type countingReader struct {
	r     vfs.FileObject
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}

func scanTar(parent vfs.FileObject) ([]Member, error) {
	if _, err := parent.Seek(0, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	cr := &countingReader{r: parent}
	tr := tar.NewReader(cr)

	var members []Member
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeTAR, Reason: err.Error()}
		}
		offset := cr.count
		name := hdr.Name
		isDir := hdr.Typeflag == tar.TypeDir
		size := hdr.Size
		mode := uint32(hdr.Mode)
		mtime := hdr.ModTime
		members = append(members, Member{
			Name:  name,
			Size:  size,
			Mode:  mode,
			Mtime: mtime,
			IsDir: isDir,
			Open: func() (vfs.FileObject, error) {
				return datarange.New(parent, offset, size)
			},
		})
	}
	return members, nil
}
