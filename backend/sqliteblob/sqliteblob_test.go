package sqliteblob

import (
	"database/sql"
	"io"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileObject wraps an *os.File as a vfs.FileObject so tests can spool from
// it the way a real OS-backed parent would behave.
type fileObject struct {
	vfs.OffsetTracker
	f *os.File
}

func (o *fileObject) Size() (int64, error) {
	info, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (o *fileObject) Read(p []byte) (int, error) { return o.f.Read(p) }

func (o *fileObject) Seek(offset int64, whence int) (int64, error) {
	return o.f.Seek(offset, whence)
}

func (o *fileObject) Close() error { return o.f.Close() }

func buildDatabase(t *testing.T, blobs [][]byte) *fileObject {
	t.Helper()
	tmp, err := os.CreateTemp("", "godfvfs-sqliteblob-test-*.db")
	require.NoError(t, err)
	path := tmp.Name()
	require.NoError(t, tmp.Close())
	t.Cleanup(func() { os.Remove(path) })

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE attachments (id INTEGER PRIMARY KEY, payload BLOB)`)
	require.NoError(t, err)
	for i, b := range blobs {
		_, err := db.Exec(`INSERT INTO attachments (id, payload) VALUES (?, ?)`, i, b)
		require.NoError(t, err)
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return &fileObject{f: f}
}

func blobSpec(t *testing.T, attrs map[string]interface{}) *pathspec.PathSpec {
	t.Helper()
	parent, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/history.db"})
	require.NoError(t, err)
	merged := map[string]interface{}{"table_name": "attachments", "column_name": "payload"}
	for k, v := range attrs {
		merged[k] = v
	}
	ps, err := pathspec.New(dfvfs.TypeSQLiteBlob, parent, merged)
	require.NoError(t, err)
	return ps
}

func TestNewFileObjectFetchesBlobByRowIndex(t *testing.T) {
	want := []byte("first blob payload")
	parent := buildDatabase(t, [][]byte{want, []byte("second")})
	ps := blobSpec(t, map[string]interface{}{"row_index": int64(0)})

	h := &Helper{}
	obj, err := h.NewFileObject(ps, parent, nil)
	require.NoError(t, err)

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewFileObjectFetchesBlobByRowCondition(t *testing.T) {
	want := []byte("second blob payload")
	parent := buildDatabase(t, [][]byte{[]byte("first"), want})
	ps := blobSpec(t, map[string]interface{}{"row_condition": "id = 1"})

	h := &Helper{}
	obj, err := h.NewFileObject(ps, parent, nil)
	require.NoError(t, err)

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewFileObjectMissingTableOrColumn(t *testing.T) {
	parent := buildDatabase(t, [][]byte{[]byte("x")})
	osParent, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/history.db"})
	require.NoError(t, err)
	ps, err := pathspec.New(dfvfs.TypeSQLiteBlob, osParent, map[string]interface{}{"table_name": "attachments"})
	require.NoError(t, err)

	h := &Helper{}
	_, err = h.NewFileObject(ps, parent, nil)
	require.Error(t, err)
}

func TestNewFileObjectNoMatchingRow(t *testing.T) {
	parent := buildDatabase(t, [][]byte{[]byte("only one row")})
	ps := blobSpec(t, map[string]interface{}{"row_index": int64(5)})

	h := &Helper{}
	_, err := h.NewFileObject(ps, parent, nil)
	require.Error(t, err)
	var be *dfvfs.BackEndError
	require.ErrorAs(t, err, &be)
}

func TestNewFileSystemRootEntryServesBlob(t *testing.T) {
	want := []byte("root entry blob")
	parent := buildDatabase(t, [][]byte{want})
	ps := blobSpec(t, map[string]interface{}{"row_index": int64(0)})

	h := &Helper{}
	fs, err := h.NewFileSystem(ps, parent, nil)
	require.NoError(t, err)

	root, err := fs.GetRootFileEntry()
	require.NoError(t, err)
	assert.True(t, root.IsFile())
	assert.True(t, root.IsRoot())

	obj, err := root.GetFileObject(vfs.DefaultDataStreamName)
	require.NoError(t, err)
	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
