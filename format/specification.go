// Package format implements a multi-signature format scanner: a store of
// format specifications, each carrying one or more byte signatures,
// searched in a single pass over a byte stream using an Aho-Corasick
// automaton built over every registered pattern.
//
// No dependency in this module's ecosystem vendors an Aho-Corasick
// implementation, so the automaton in ahocorasick.go is hand-rolled, in
// the same spirit as rclone hand-rolling small, contract-central
// algorithms under lib/ (lib/readers' chunked reader, fs/dirtree's tree
// builder) instead of taking a dependency for the core algorithm of a
// component.
package format

import (
	"github.com/log2timeline/godfvfs/dfvfs"
)

// Signature is a literal byte pattern with an offset constraint. Offset
// is nil for "anywhere in the bounded scan window"; otherwise a positive
// value counts from the start of the stream and a negative value counts
// from the end. A single nilable field covers both the unbounded and
// bounded cases so callers never juggle a separate "is bounded" flag.
type Signature struct {
	Pattern []byte
	Offset  *int64
}

// OffsetAt returns a Signature anchored at a non-negative offset from the
// start of the stream.
func OffsetAt(offset int64, pattern []byte) Signature {
	o := offset
	return Signature{Pattern: pattern, Offset: &o}
}

// OffsetFromEnd returns a Signature anchored at a negative offset,
// interpreted as size+offset.
func OffsetFromEnd(offset int64, pattern []byte) Signature {
	o := offset
	return Signature{Pattern: pattern, Offset: &o}
}

// Unbounded returns a Signature with no offset constraint: it may match
// anywhere within the scanner's bounded prefix/suffix window.
func Unbounded(pattern []byte) Signature {
	return Signature{Pattern: pattern, Offset: nil}
}

// Bound reports whether the signature requires a specific offset.
func (s Signature) Bound() bool { return s.Offset != nil }

// Specification names a format and the signatures that identify it.
type Specification struct {
	Identifier    string
	TypeIndicator dfvfs.TypeIndicator
	Category      dfvfs.FormatCategory
	Signatures    []Signature
}
