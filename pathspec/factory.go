package pathspec

import (
	"fmt"
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// ErrKeyError is returned by Factory.Register/Deregister on a duplicate
// registration or an unregistered deregistration.
type ErrKeyError struct {
	TypeIndicator dfvfs.TypeIndicator
	Op            string
}

func (e *ErrKeyError) Error() string {
	return fmt.Sprintf("KeyError: %s: type indicator %q", e.Op, e.TypeIndicator)
}

// Factory is the registry of type indicators the deserializer will accept.
// Every resolver helper package registers its type indicator at init()
// time (a blank import of a backend package is enough), mirroring
// rclone's fs.Register(&fs.RegInfo{...}) convention — one registry row per
// back end, added by the back end's own init().
type Factory struct {
	mu        sync.Mutex
	registered map[dfvfs.TypeIndicator]bool
}

// NewFactory returns an empty factory. The package-level Default factory
// is what resolver helper packages register against; NewFactory exists so
// tests can build an isolated registry.
func NewFactory() *Factory {
	return &Factory{registered: make(map[dfvfs.TypeIndicator]bool)}
}

// Default is the process-wide factory backend packages register into.
var Default = NewFactory()

// Register adds t to the factory. Registering the same type indicator
// twice returns ErrKeyError.
func (f *Factory) Register(t dfvfs.TypeIndicator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registered[t] {
		return &ErrKeyError{TypeIndicator: t, Op: "Register"}
	}
	f.registered[t] = true
	return nil
}

// Deregister removes t from the factory. Deregistering a type indicator
// that was never registered returns ErrKeyError.
func (f *Factory) Deregister(t dfvfs.TypeIndicator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.registered[t] {
		return &ErrKeyError{TypeIndicator: t, Op: "Deregister"}
	}
	delete(f.registered, t)
	return nil
}

// IsRegistered reports whether t is currently known to the factory.
func (f *Factory) IsRegistered(t dfvfs.TypeIndicator) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[t]
}

// New validates that t is registered, then delegates to pathspec.New. This
// is the path the JSON deserializer (and any caller building a path spec
// from untrusted input) should use instead of calling New directly, so
// an unregistered/unknown type indicator is rejected before a PathSpec is
// ever constructed.
func (f *Factory) New(t dfvfs.TypeIndicator, parent *PathSpec, attrs map[string]interface{}) (*PathSpec, error) {
	if !f.IsRegistered(t) {
		return nil, dfvfs.NewPathSpecError(fmt.Sprintf("New(%s)", t), fmt.Errorf("type indicator not registered"))
	}
	return New(t, parent, attrs)
}
