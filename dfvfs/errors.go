package dfvfs

import (
	"errors"
	"fmt"
)

// Error taxonomy. Each is a distinct, wrappable type so callers can
// errors.As() onto the one they care about; sentinels below cover the
// cases that carry no extra data. This mirrors rclone's own error style,
// plain sentinel errors plus fmt.Errorf("...: %w") wrapping in
// fs/fserrors, rather than reaching for a third-party errors package;
// rclone's go.mod only ever pulls in github.com/pkg/errors transitively
// through a cloud SDK, never from its own core.

// PathSpecError reports a malformed or incompatible path specification.
type PathSpecError struct {
	Op     string
	Reason string
}

func (e *PathSpecError) Error() string {
	return fmt.Sprintf("path spec error: %s: %s", e.Op, e.Reason)
}

// Sentinels returned (wrapped) as the Reason-independent half of
// PathSpecError, so callers can match with errors.Is.
var (
	ErrMissingParent   = errors.New("missing parent path specification")
	ErrUnexpectedParent = errors.New("unexpected parent path specification")
	ErrUnknownAttribute = errors.New("unknown path specification attribute")
)

func (e *PathSpecError) Unwrap() error {
	switch e.Reason {
	case ErrMissingParent.Error():
		return ErrMissingParent
	case ErrUnexpectedParent.Error():
		return ErrUnexpectedParent
	case ErrUnknownAttribute.Error():
		return ErrUnknownAttribute
	}
	return nil
}

// NewPathSpecError builds a PathSpecError wrapping one of the sentinels
// above (or any other reason).
func NewPathSpecError(op string, reason error) *PathSpecError {
	return &PathSpecError{Op: op, Reason: reason.Error()}
}

// BackEndError reports a format driver failure: missing metadata, a
// corrupt structure, or an underlying library failure.
type BackEndError struct {
	TypeIndicator TypeIndicator
	Reason        string
}

func (e *BackEndError) Error() string {
	return fmt.Sprintf("backend error (%s): %s", e.TypeIndicator, e.Reason)
}

// AccessError reports permission denied, by the host OS or a parent back
// end.
type AccessError struct {
	Reason string
}

func (e *AccessError) Error() string { return fmt.Sprintf("access error: %s", e.Reason) }

// NotSupportedKind distinguishes the reasons an operation can be
// unavailable.
type NotSupportedKind int

// Kinds of NotSupportedError.
const (
	NotSupportedGeneric NotSupportedKind = iota
	NotSupportedWrite
	NotSupportedMissingDriver
	NotSupportedMissingCredentials
)

// NotSupportedError reports that the requested operation is unavailable on
// this back end.
type NotSupportedError struct {
	Kind   NotSupportedKind
	Reason string
	// Names lists the credential names required when Kind is
	// NotSupportedMissingCredentials.
	Names []CredentialName
}

func (e *NotSupportedError) Error() string {
	if e.Kind == NotSupportedMissingCredentials {
		return fmt.Sprintf("not supported: missing credentials %v", e.Names)
	}
	if e.Reason != "" {
		return fmt.Sprintf("not supported: %s", e.Reason)
	}
	return "not supported"
}

// MissingCredentials builds the error the resolver returns when a key
// chain lookup for an encrypted back end comes up empty.
func MissingCredentials(names ...CredentialName) *NotSupportedError {
	return &NotSupportedError{Kind: NotSupportedMissingCredentials, Names: names}
}

// CacheFullError reports that the resolver's context cache limit was
// exceeded.
type CacheFullError struct {
	Limit int
}

func (e *CacheFullError) Error() string {
	return fmt.Sprintf("cache full error: limit of %d objects exceeded", e.Limit)
}

// KeyChainError reports a credential value ill-typed for its name.
type KeyChainError struct {
	Name   CredentialName
	Reason string
}

func (e *KeyChainError) Error() string {
	return fmt.Sprintf("key chain error: %s: %s", e.Name, e.Reason)
}

// IOError reports that an underlying read or seek failed. Offset is the
// byte offset at the point of failure, when known.
type IOError struct {
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error at offset 0x%08x: %v", e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps err with the offset at which it occurred. Returns nil
// if err is nil, so callers can write `return NewIOError(off, err)`
// unconditionally after a read/seek.
func NewIOError(offset int64, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Offset: offset, Err: err}
}

// FormatError reports a malformed signature table or an internal
// inconsistency inside the scanner.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return fmt.Sprintf("format error: %s", e.Reason) }
