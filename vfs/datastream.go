package vfs

// DefaultDataStreamName is the empty-name stream: the default/unnamed
// stream carrying a file's contents.
const DefaultDataStreamName = ""

// DataStream is a named view on a file entry that produces a file-like
// object. NTFS alternate data streams and HFS resource forks are
// non-default data streams of the same file entry.
type DataStream interface {
	// Name returns the stream's name; DefaultDataStreamName for the
	// default stream.
	Name() string

	// Open returns a file-like object for this stream's bytes.
	Open() (FileObject, error)
}

// SimpleDataStream is the common case: a named stream whose bytes are
// opened via a single closure, needing no extra state.
type SimpleDataStream struct {
	name   string
	openFn func() (FileObject, error)
}

// NewSimpleDataStream returns a DataStream backed by openFn.
func NewSimpleDataStream(name string, openFn func() (FileObject, error)) *SimpleDataStream {
	return &SimpleDataStream{name: name, openFn: openFn}
}

// Name implements DataStream.
func (s *SimpleDataStream) Name() string { return s.name }

// Open implements DataStream.
func (s *SimpleDataStream) Open() (FileObject, error) { return s.openFn() }

// Attribute is a named, typed metadata view on a file entry distinct from
// its stat (NTFS $STANDARD_INFORMATION, POSIX extended attributes, and
// the like).
type Attribute interface {
	Name() string
	Value() interface{}
}

// SimpleAttribute is a plain name/value Attribute.
type SimpleAttribute struct {
	name  string
	value interface{}
}

// NewAttribute returns an Attribute with a fixed value.
func NewAttribute(name string, value interface{}) *SimpleAttribute {
	return &SimpleAttribute{name: name, value: value}
}

// Name implements Attribute.
func (a *SimpleAttribute) Name() string { return a.name }

// Value implements Attribute.
func (a *SimpleAttribute) Value() interface{} { return a.value }
