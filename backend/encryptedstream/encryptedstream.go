// Package encryptedstream implements the ENCRYPTED_STREAM back end: a
// generic, algorithm-parameterized encrypted byte stream distinct from
// the whole-volume encrypted formats (BDE, FVDE, LUKSDE), which carry
// their own on-disk key-derivation metadata. ENCRYPTED_STREAM instead
// names its cipher via the "encryption_method" attribute and pulls its
// key material from the key chain, the same credential flow §4.2
// describes for the volume formats.
//
// Grounded on rclone's backend/crypt cipher.go: a password is stretched
// into key material with golang.org/x/crypto (rclone uses scrypt; this
// driver uses the same package's pbkdf2, since a generic stream cipher
// has no natural per-file salt to feed scrypt's cost parameters the way
// crypt's config-level salt does) rather than using the password bytes
// directly as key material.
package encryptedstream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/keychain"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/log2timeline/godfvfs/resolver"
	"github.com/log2timeline/godfvfs/vfs"
)

// Cipher method names, the values the "encryption_method" attribute on
// an ENCRYPTED_STREAM path spec accepts.
const (
	MethodAESCBC = "aes-cbc"
	MethodAESCTR = "aes-ctr"
	MethodRC4    = "rc4"
)

// pbkdf2Iterations is deliberately modest: this back end authenticates
// nothing and derives only a decode key, not a vault master key, so the
// cost/security tradeoff rclone's crypt package makes for its config
// password does not apply here.
const pbkdf2Iterations = 4096

func init() {
	_ = pathspec.Default.Register(dfvfs.TypeEncryptedStream)
	h := &Helper{}
	_ = resolver.Default.RegisterFileObjectHelper(h)
	_ = resolver.Default.RegisterFileSystemHelper(h)
}

// Helper constructs the FileObject and virtual single-entry FileSystem
// for TypeEncryptedStream.
type Helper struct{}

// TypeIndicator implements resolver.Helper.
func (h *Helper) TypeIndicator() dfvfs.TypeIndicator { return dfvfs.TypeEncryptedStream }

func deriveKeyIV(password string, keyLen int) (key, iv []byte) {
	salt := []byte("godfvfs-encrypted-stream")
	material := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen+aes.BlockSize, sha256.New)
	return material[:keyLen], material[keyLen : keyLen+aes.BlockSize]
}

func decryptAll(method, password string, ciphertext []byte) ([]byte, error) {
	switch method {
	case MethodAESCBC:
		key, iv := deriveKeyIV(password, 32)
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeEncryptedStream, Reason: err.Error()}
		}
		padded := ciphertext
		if rem := len(padded) % aes.BlockSize; rem != 0 {
			padded = append(padded, make([]byte, aes.BlockSize-rem)...)
		}
		out := make([]byte, len(padded))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, padded)
		return out[:len(ciphertext)], nil
	case MethodAESCTR:
		key, iv := deriveKeyIV(password, 32)
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeEncryptedStream, Reason: err.Error()}
		}
		out := make([]byte, len(ciphertext))
		cipher.NewCTR(block, iv).XORKeyStream(out, ciphertext)
		return out, nil
	case MethodRC4:
		key, _ := deriveKeyIV(password, 16)
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, &dfvfs.BackEndError{TypeIndicator: dfvfs.TypeEncryptedStream, Reason: err.Error()}
		}
		out := make([]byte, len(ciphertext))
		c.XORKeyStream(out, ciphertext)
		return out, nil
	default:
		return nil, &dfvfs.NotSupportedError{Reason: "unknown encryption method " + method}
	}
}

// NewFileObject implements resolver.FileObjectHelper.
func (h *Helper) NewFileObject(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileObject, error) {
	if parent == nil {
		return nil, dfvfs.NewPathSpecError("NewFileObject", dfvfs.ErrMissingParent)
	}
	method := ps.StringAttr("encryption_method")
	if method == "" {
		return nil, dfvfs.NewPathSpecError("NewFileObject", dfvfs.ErrUnknownAttribute)
	}
	password, err := keychain.Default.RequireCredentials(ps, dfvfs.CredentialPassword)
	if err != nil {
		return nil, err
	}
	if _, err := parent.Seek(0, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	ciphertext, err := io.ReadAll(parent)
	if err != nil {
		return nil, dfvfs.NewIOError(0, err)
	}
	plaintext, err := decryptAll(method, password[dfvfs.CredentialPassword], ciphertext)
	if err != nil {
		return nil, err
	}
	return &FileObject{data: plaintext}, nil
}

// NewFileSystem implements resolver.FileSystemHelper.
func (h *Helper) NewFileSystem(ps *pathspec.PathSpec, parent vfs.FileObject, ctx *resolver.Context) (vfs.FileSystem, error) {
	obj, err := h.NewFileObject(ps, parent, ctx)
	if err != nil {
		return nil, err
	}
	return &FileSystem{obj: obj, ps: ps}, nil
}

// FileObject serves the fully decrypted bytes.
type FileObject struct {
	vfs.OffsetTracker
	data []byte
}

// Size implements vfs.FileObject.
func (f *FileObject) Size() (int64, error) { return int64(len(f.data)), nil }

// Read implements io.Reader.
func (f *FileObject) Read(p []byte) (int, error) {
	off := f.Offset()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	f.Advance(n)
	return n, nil
}

// Seek implements io.Seeker.
func (f *FileObject) Seek(offset int64, whence int) (int64, error) {
	return f.OffsetTracker.Seek(offset, whence, int64(len(f.data)))
}

// Close implements io.Closer.
func (f *FileObject) Close() error { return nil }

var _ io.ReadSeekCloser = (*FileObject)(nil)

// FileSystem exposes the decrypted stream as a single virtual root
// entry.
type FileSystem struct {
	vfs.PathHelper
	obj vfs.FileObject
	ps  *pathspec.PathSpec
}

// Open implements vfs.FileSystem.
func (f *FileSystem) Open(ps *pathspec.PathSpec) error { return nil }

// Close implements vfs.FileSystem.
func (f *FileSystem) Close() error { return nil }

// FileEntryExistsByPathSpec implements vfs.FileSystem.
func (f *FileSystem) FileEntryExistsByPathSpec(ps *pathspec.PathSpec) (bool, error) {
	return true, nil
}

// GetFileEntryByPathSpec implements vfs.FileSystem.
func (f *FileSystem) GetFileEntryByPathSpec(ps *pathspec.PathSpec) (vfs.FileEntry, error) {
	return f.root(ps), nil
}

// GetRootFileEntry implements vfs.FileSystem.
func (f *FileSystem) GetRootFileEntry() (vfs.FileEntry, error) {
	return f.root(f.ps), nil
}

func (f *FileSystem) root(ps *pathspec.PathSpec) vfs.FileEntry {
	e := &entry{fs: f}
	e.Base = vfs.NewBase(ps, "", true, true, func() (*vfs.Stat, error) {
		size, err := f.obj.Size()
		if err != nil {
			return nil, err
		}
		return &vfs.Stat{Type: vfs.TypeFile, Size: size, IsAllocated: true}, nil
	})
	return e
}

type entry struct {
	vfs.Base
	fs *FileSystem
}

func (e *entry) NumberOfDataStreams() (int, error) { return 1, nil }

func (e *entry) DataStreams() ([]vfs.DataStream, error) {
	return []vfs.DataStream{vfs.NewSimpleDataStream(vfs.DefaultDataStreamName, func() (vfs.FileObject, error) {
		return e.fs.obj, nil
	})}, nil
}

func (e *entry) GetDataStream(name string) (vfs.DataStream, error) {
	if name != vfs.DefaultDataStreamName {
		return nil, nil
	}
	streams, _ := e.DataStreams()
	return streams[0], nil
}

func (e *entry) GetFileObject(dataStream string) (vfs.FileObject, error) { return e.fs.obj, nil }

func (e *entry) GetParentFileEntry() (vfs.FileEntry, error) { return nil, nil }

func (e *entry) SubFileEntries() (vfs.Directory, error) {
	return vfs.NewSliceDirectory(func() ([]*pathspec.PathSpec, error) { return nil, nil }), nil
}
