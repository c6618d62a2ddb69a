package keychain

import (
	"testing"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bdeSpec(t *testing.T) *pathspec.PathSpec {
	t.Helper()
	os1, err := pathspec.New(dfvfs.TypeOS, nil, map[string]interface{}{"location": "/bdetogo.raw"})
	require.NoError(t, err)
	bde, err := pathspec.New(dfvfs.TypeBDE, os1, nil)
	require.NoError(t, err)
	return bde
}

func TestSetGetCredential(t *testing.T) {
	kc := New()
	ps := bdeSpec(t)

	_, ok := kc.GetCredential(ps, dfvfs.CredentialPassword)
	assert.False(t, ok)

	kc.SetCredential(ps, dfvfs.CredentialPassword, "bde-TEST")
	v, ok := kc.GetCredential(ps, dfvfs.CredentialPassword)
	require.True(t, ok)
	assert.Equal(t, "bde-TEST", v)
}

func TestRequireCredentialsMissing(t *testing.T) {
	kc := New()
	ps := bdeSpec(t)

	_, err := kc.RequireCredentials(ps, dfvfs.CredentialPassword, dfvfs.CredentialStartupKey)
	require.Error(t, err)

	var nse *dfvfs.NotSupportedError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, dfvfs.NotSupportedMissingCredentials, nse.Kind)
	assert.ElementsMatch(t, []dfvfs.CredentialName{dfvfs.CredentialPassword, dfvfs.CredentialStartupKey}, nse.Names)
}

func TestRequireCredentialsSatisfied(t *testing.T) {
	kc := New()
	ps := bdeSpec(t)
	kc.SetCredential(ps, dfvfs.CredentialPassword, "bde-TEST")

	creds, err := kc.RequireCredentials(ps, dfvfs.CredentialPassword)
	require.NoError(t, err)
	assert.Equal(t, "bde-TEST", creds[dfvfs.CredentialPassword])
}

func TestCopyFrom(t *testing.T) {
	src := New()
	ps := bdeSpec(t)
	src.SetCredential(ps, dfvfs.CredentialPassword, "bde-TEST")

	dst := New()
	dst.CopyFrom(src)

	v, ok := dst.GetCredential(ps, dfvfs.CredentialPassword)
	require.True(t, ok)
	assert.Equal(t, "bde-TEST", v)
}

func TestEmpty(t *testing.T) {
	kc := New()
	ps := bdeSpec(t)
	kc.SetCredential(ps, dfvfs.CredentialPassword, "bde-TEST")
	kc.Empty()
	_, ok := kc.GetCredential(ps, dfvfs.CredentialPassword)
	assert.False(t, ok)
}
