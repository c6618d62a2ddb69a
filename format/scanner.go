package format

import (
	"io"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// DefaultWindowSize is the number of bytes scanned at the start and end
// of a stream for unbounded signatures: the first and last 64 KiB.
const DefaultWindowSize int64 = 64 * 1024

// ScanOptions configures a Store.Scan call.
type ScanOptions struct {
	// WindowSize overrides DefaultWindowSize. Zero means use the default.
	WindowSize int64
}

func (o ScanOptions) windowSize() int64 {
	if o.WindowSize > 0 {
		return o.WindowSize
	}
	return DefaultWindowSize
}

// Result is one identified format, from one matching signature.
type Result struct {
	Identifier    string
	TypeIndicator dfvfs.TypeIndicator
	Offset        int64
}

// UnknownSize tells Scan/ScanBoundOnly the stream's length is not known
// up front. Negative-offset signatures cannot be evaluated in that case
// and cause a *dfvfs.FormatError rather than a silent buffering of the
// tail.
const UnknownSize int64 = -1

// Scan runs every registered signature against r, returning one Result
// per signature that matches and satisfies its offset constraint (spec
// §4.3 "Multi-signature search"). Unbounded signatures (Offset == nil) are
// accepted anywhere within the scanned window.
func (s *Store) Scan(r io.ReadSeeker, size int64, opts ScanOptions) ([]Result, error) {
	return s.scan(r, size, opts, false)
}

// ScanBoundOnly is the stricter variant the analyzer uses when every
// candidate format defines a precise header offset: signatures with no
// explicit offset are ignored entirely, not merely deprioritized (spec
// §4.3 "Offset-bound scanner").
func (s *Store) ScanBoundOnly(r io.ReadSeeker, size int64, opts ScanOptions) ([]Result, error) {
	return s.scan(r, size, opts, true)
}

func (s *Store) scan(r io.ReadSeeker, size int64, opts ScanOptions, boundOnly bool) ([]Result, error) {
	s.mu.Lock()
	s.ensureAutomaton()
	automaton := s.automaton
	patternIDs := s.patternIDs
	s.mu.Unlock()

	if size < 0 {
		for _, ref := range s.sigOwner {
			if ref.sig.Offset != nil && *ref.sig.Offset < 0 {
				return nil, &dfvfs.FormatError{Reason: "negative-offset signature requires a known stream size"}
			}
		}
	}

	window := opts.windowSize()

	type span struct {
		base int64
		data []byte
	}
	var spans []span

	head, err := readAt(r, 0, window)
	if err != nil {
		return nil, err
	}
	spans = append(spans, span{base: 0, data: head})

	if size > 0 && size > int64(len(head)) {
		tailStart := size - window
		if tailStart < int64(len(head)) {
			tailStart = int64(len(head))
		}
		if tailStart < size {
			tail, err := readAt(r, tailStart, size-tailStart)
			if err != nil {
				return nil, err
			}
			if len(tail) > 0 {
				spans = append(spans, span{base: tailStart, data: tail})
			}
		}
	}

	seen := make(map[string]bool)
	var results []Result
	for _, sp := range spans {
		for _, m := range automaton.Search(sp.data) {
			id := patternIDs[m.PatternIndex]
			ref := s.sigOwner[id]
			matchOffset := sp.base + int64(m.End) - int64(len(ref.sig.Pattern))

			if ref.sig.Offset == nil {
				if boundOnly {
					continue
				}
			} else {
				want := *ref.sig.Offset
				if want < 0 {
					want = size + want
				}
				if matchOffset != want {
					continue
				}
			}

			key := ref.spec.Identifier
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, Result{
				Identifier:    ref.spec.Identifier,
				TypeIndicator: ref.spec.TypeIndicator,
				Offset:        matchOffset,
			})
		}
	}
	return results, nil
}

func readAt(r io.ReadSeeker, offset, n int64) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, dfvfs.NewIOError(offset, err)
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, dfvfs.NewIOError(offset, err)
	}
	return buf[:read], nil
}

