// Package keychain implements a process-wide map from a path
// specification's comparable form to its named credentials, kept
// deliberately separate from pathspec.PathSpec so a path spec remains a
// pure locator safe to serialize, log and hash.
package keychain

import (
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/pathspec"
)

// KeyChain maps a path spec's comparable form to its credentials.
type KeyChain struct {
	mu    sync.RWMutex
	creds map[string]map[dfvfs.CredentialName]string
}

// New returns an empty key chain.
func New() *KeyChain {
	return &KeyChain{creds: make(map[string]map[dfvfs.CredentialName]string)}
}

// Default is the process-wide key chain resolver helpers consult (spec
// §4.2 "Credentials").
var Default = New()

// SetCredential stores value under name for ps.
func (k *KeyChain) SetCredential(ps *pathspec.PathSpec, name dfvfs.CredentialName, value string) {
	key := ps.Comparable()
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.creds[key]
	if !ok {
		m = make(map[dfvfs.CredentialName]string)
		k.creds[key] = m
	}
	m[name] = value
}

// GetCredential returns the named credential for ps, if set.
func (k *KeyChain) GetCredential(ps *pathspec.PathSpec, name dfvfs.CredentialName) (string, bool) {
	key := ps.Comparable()
	k.mu.RLock()
	defer k.mu.RUnlock()
	m, ok := k.creds[key]
	if !ok {
		return "", false
	}
	v, ok := m[name]
	return v, ok
}

// GetCredentials returns a defensive copy of every credential set for ps.
func (k *KeyChain) GetCredentials(ps *pathspec.PathSpec) map[dfvfs.CredentialName]string {
	key := ps.Comparable()
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[dfvfs.CredentialName]string)
	for name, v := range k.creds[key] {
		out[name] = v
	}
	return out
}

// CopyFrom merges every entry of other into k, overwriting any existing
// entries for the same path spec.
func (k *KeyChain) CopyFrom(other *KeyChain) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, m := range other.creds {
		cp := make(map[dfvfs.CredentialName]string, len(m))
		for name, v := range m {
			cp[name] = v
		}
		k.creds[key] = cp
	}
}

// Empty discards every stored credential.
func (k *KeyChain) Empty() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.creds = make(map[string]map[dfvfs.CredentialName]string)
}

// RequireCredentials fetches every name in names from k for ps, returning
// a *dfvfs.NotSupportedError (NotSupportedMissingCredentials) listing
// whichever names were absent, or the populated map if all were present.
// Resolver helpers for encrypted back ends call this before opening (spec
// §4.2 "Credentials").
func (k *KeyChain) RequireCredentials(ps *pathspec.PathSpec, names ...dfvfs.CredentialName) (map[dfvfs.CredentialName]string, error) {
	have := k.GetCredentials(ps)
	var missing []dfvfs.CredentialName
	out := make(map[dfvfs.CredentialName]string)
	for _, name := range names {
		v, ok := have[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out[name] = v
	}
	if len(missing) > 0 {
		return nil, dfvfs.MissingCredentials(missing...)
	}
	return out, nil
}
