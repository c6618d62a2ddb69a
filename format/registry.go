package format

import (
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// stores holds the process-wide, format-category-scoped Store singletons
// that every back end's init() registers its signatures into, mirroring
// rclone's fs.Register map of backend RegInfo singletons but keyed by
// format category instead of backend name.
var (
	storesMu sync.Mutex
	stores   = map[dfvfs.FormatCategory]*Store{}
)

// StoreFor returns the process-wide Store for category, creating it on
// first use. Concurrent callers during the registration phase (backend
// package init() functions) are serialized by storesMu; after that point
// the Store itself is safe for concurrent reads per its own doc comment.
func StoreFor(category dfvfs.FormatCategory) *Store {
	storesMu.Lock()
	defer storesMu.Unlock()
	s, ok := stores[category]
	if !ok {
		s = NewStore(category)
		stores[category] = s
	}
	return s
}
