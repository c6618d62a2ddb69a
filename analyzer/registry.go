package analyzer

import (
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
	"github.com/log2timeline/godfvfs/format"
)

var (
	analyzersMu sync.Mutex
	analyzers   = map[dfvfs.FormatCategory]*Analyzer{}
)

// ForCategory returns the process-wide Analyzer for category, built over
// format.StoreFor(category), creating it on first use. Fallback Helpers
// added with RegisterHelper on the returned Analyzer are tried after the
// signature scan; no back end package in this module registers one.
func ForCategory(category dfvfs.FormatCategory) *Analyzer {
	analyzersMu.Lock()
	defer analyzersMu.Unlock()
	a, ok := analyzers[category]
	if !ok {
		a = New(format.StoreFor(category))
		analyzers[category] = a
	}
	return a
}

func init() {
	analyzersMu.Lock()
	analyzers[dfvfs.CategoryFileSystem] = Default
	analyzersMu.Unlock()
}
