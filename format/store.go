package format

import (
	"fmt"
	"sync"

	"github.com/log2timeline/godfvfs/dfvfs"
)

// Store is a format-category-scoped collection of specifications (spec
// §4.3 "Specification store"). Adding a specification assigns each of its
// signatures a unique "<format_id>:<n>" identifier and builds (lazily,
// once) the Aho–Corasick automaton over every registered pattern.
type Store struct {
	category dfvfs.FormatCategory

	mu         sync.Mutex
	specs      map[string]*Specification
	sigOwner   map[string]sigRef // "<format_id>:<n>" -> owning spec + signature
	patternIDs []string          // index -> sig id, in automaton pattern order
	automaton  *Automaton
	dirty      bool
}

type sigRef struct {
	spec *Specification
	sig  Signature
}

// NewStore returns an empty store scoped to category.
func NewStore(category dfvfs.FormatCategory) *Store {
	return &Store{
		category: category,
		specs:    make(map[string]*Specification),
		sigOwner: make(map[string]sigRef),
		dirty:    true,
	}
}

// AddSpecification registers spec, assigning each signature a unique
// identifier of the form "<format_id>:<n>". Returns a FormatError if
// spec.Identifier is already registered.
func (s *Store) AddSpecification(spec *Specification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.specs[spec.Identifier]; exists {
		return &dfvfs.FormatError{Reason: fmt.Sprintf("duplicate format identifier %q", spec.Identifier)}
	}
	s.specs[spec.Identifier] = spec
	for n, sig := range spec.Signatures {
		id := fmt.Sprintf("%s:%d", spec.Identifier, n)
		if _, exists := s.sigOwner[id]; exists {
			return &dfvfs.FormatError{Reason: fmt.Sprintf("duplicate signature identifier %q", id)}
		}
		s.sigOwner[id] = sigRef{spec: spec, sig: sig}
	}
	s.dirty = true
	return nil
}

// Specifications returns every registered specification.
func (s *Store) Specifications() []*Specification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Specification, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, spec)
	}
	return out
}

// SignatureIdentifiers returns every signature identifier the store has
// assigned, for uniqueness testing.
func (s *Store) SignatureIdentifiers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sigOwner))
	for id := range s.sigOwner {
		out = append(out, id)
	}
	return out
}

// ensureAutomaton (re)builds the Aho-Corasick automaton from the current
// set of signatures, serialized with mu so concurrent readers after the
// first build never race with a rebuild.
func (s *Store) ensureAutomaton() {
	if !s.dirty {
		return
	}
	ids := make([]string, 0, len(s.sigOwner))
	patterns := make([][]byte, 0, len(s.sigOwner))
	for id, ref := range s.sigOwner {
		ids = append(ids, id)
		patterns = append(patterns, ref.sig.Pattern)
	}
	s.patternIDs = ids
	s.automaton = NewAutomaton(patterns)
	s.dirty = false
}
