// Package analyzer identifies the type indicator of a byte stream: it
// runs the offset-bound format scanner first, then falls back to any
// registered Helper whose format cannot be recognized by signature alone
// (SleuthKit-backed file systems, whose on-disk layout needs active
// probing rather than a fixed magic number).
package analyzer

import (
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
	"github.com/log2timeline/godfvfs/internal/log"
	"github.com/log2timeline/godfvfs/vfs"
)

// Helper probes an already-open file-like object and reports the type
// indicator it recognizes, if any.
type Helper interface {
	TypeIndicator() dfvfs.TypeIndicator
	Analyze(obj vfs.FileObject) (dfvfs.TypeIndicator, bool, error)
}

// Analyzer couples a format.Store with a list of fallback helpers. The
// store is consulted first since signature matching is far cheaper than
// invoking a fallback helper, which may read and parse a nontrivial
// amount of the stream.
type Analyzer struct {
	mu      sync.Mutex
	store   *format.Store
	helpers []Helper
}

// New returns an Analyzer backed by store.
func New(store *format.Store) *Analyzer {
	return &Analyzer{store: store}
}

// Default is the process-wide analyzer for the file-system category; its
// fallback chain starts empty and no back end package adds to it. Other
// categories (volume_system, archive, ...) get their own Analyzer via
// ForCategory.
var Default = New(format.StoreFor(dfvfs.CategoryFileSystem))

// RegisterHelper appends h to the fallback chain. Order matches
// registration order: the first helper to recognize the stream wins.
func (a *Analyzer) RegisterHelper(h Helper) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.helpers = append(a.helpers, h)
}

// Identify returns every type indicator whose signatures match obj,
// considering only signatures with an explicit offset (the "offset-bound
// scanner" variant), then asks each fallback helper in turn if the
// scanner found nothing.
func (a *Analyzer) Identify(obj vfs.FileObject, opts format.ScanOptions) ([]dfvfs.TypeIndicator, error) {
	size, err := obj.Size()
	if err != nil {
		return nil, err
	}
	results, err := a.store.ScanBoundOnly(obj, size, opts)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		seen := make(map[dfvfs.TypeIndicator]bool, len(results))
		var out []dfvfs.TypeIndicator
		for _, r := range results {
			if !seen[r.TypeIndicator] {
				seen[r.TypeIndicator] = true
				out = append(out, r.TypeIndicator)
			}
		}
		return out, nil
	}

	a.mu.Lock()
	helpers := make([]Helper, len(a.helpers))
	copy(helpers, a.helpers)
	a.mu.Unlock()

	if _, err := obj.Seek(0, 0); err != nil {
		return nil, err
	}
	for _, h := range helpers {
		log.Debugf("scanner found no signature, probing %s fallback helper", h.TypeIndicator())
		t, ok, err := h.Analyze(obj)
		if err != nil {
			return nil, err
		}
		if ok {
			return []dfvfs.TypeIndicator{t}, nil
		}
		if _, err := obj.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
