package encryptedstream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rc4"
	"io"
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/keychain"
	"github.com/log2timeline/godfvfs/pathspec"
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

func aesCBCEncrypt(t *testing.T, password string, plaintext []byte) []byte {
	t.Helper()
	key, iv := deriveKeyIV(password, 32)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	padded := append([]byte{}, plaintext...)
	if rem := len(padded) % aes.BlockSize; rem != 0 {
		padded = append(padded, make([]byte, aes.BlockSize-rem)...)
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func specFor(t *testing.T, method string) *pathspec.PathSpec {
	t.Helper()
	parent, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/stream.bin"})
	require.NoError(t, err)
	ps, err := pathspec.New(dfvfs.TypeEncryptedStream, parent, map[string]interface{}{"encryption_method": method})
	require.NoError(t, err)
	return ps
}

func TestNewFileObjectDecryptsAESCBC(t *testing.T) {
	ps := specFor(t, MethodAESCBC)
	t.Cleanup(func() { keychain.Default.Empty() })
	keychain.Default.SetCredential(ps, dfvfs.CredentialPassword, "hunter2")

	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext := aesCBCEncrypt(t, "hunter2", plaintext)
	parent := &memObject{data: ciphertext}

	h := &Helper{}
	obj, err := h.NewFileObject(ps, parent, nil)
	require.NoError(t, err)

	got := make([]byte, len(plaintext))
	n, err := obj.Read(got)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got[:n])
}

func TestNewFileObjectMissingCredential(t *testing.T) {
	ps := specFor(t, MethodAESCBC)
	t.Cleanup(func() { keychain.Default.Empty() })

	h := &Helper{}
	_, err := h.NewFileObject(ps, &memObject{data: []byte("x")}, nil)
	require.Error(t, err)
	var nse *dfvfs.NotSupportedError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, dfvfs.NotSupportedMissingCredentials, nse.Kind)
}

func TestNewFileObjectMissingMethodAttr(t *testing.T) {
	parent, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/stream.bin"})
	require.NoError(t, err)
	ps, err := pathspec.New(dfvfs.TypeEncryptedStream, parent, nil)
	require.NoError(t, err)
	t.Cleanup(func() { keychain.Default.Empty() })
	keychain.Default.SetCredential(ps, dfvfs.CredentialPassword, "hunter2")

	h := &Helper{}
	_, err = h.NewFileObject(ps, &memObject{data: []byte("x")}, nil)
	require.Error(t, err)
}

func TestNewFileSystemRootEntryServesDecryptedBytes(t *testing.T) {
	ps := specFor(t, MethodRC4)
	t.Cleanup(func() { keychain.Default.Empty() })
	keychain.Default.SetCredential(ps, dfvfs.CredentialPassword, "rc4-pass")

	key, _ := deriveKeyIV("rc4-pass", 16)
	c, err := rc4.NewCipher(key)
	require.NoError(t, err)
	plaintext := []byte("rc4 stream contents")
	ciphertext := make([]byte, len(plaintext))
	c.XORKeyStream(ciphertext, plaintext)

	h := &Helper{}
	fs, err := h.NewFileSystem(ps, &memObject{data: ciphertext}, nil)
	require.NoError(t, err)

	root, err := fs.GetRootFileEntry()
	require.NoError(t, err)
	assert.True(t, root.IsFile())
	assert.True(t, root.IsRoot())

	obj, err := root.GetFileObject(vfs.DefaultDataStreamName)
	require.NoError(t, err)
	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}
