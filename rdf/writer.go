package rdf

import (
	"io"
)

// Handler receives namespaces and statements in push mode. All HandleNamespace
// calls for a document precede its first HandleStatement call.
type Handler interface {
	HandleNamespace(prefix, iri string) error
	HandleStatement(Statement) error
}

// Writer streams RDF statements to an output.
// For triple-only formats, the graph (G) field is ignored.
type Writer interface {
	Handler
	Flush() error
	Close() error
}

// HandlerFuncs adapts plain functions to Handler. Nil functions accept
// everything.
type HandlerFuncs struct {
	Namespace func(prefix, iri string) error
	Statement func(Statement) error
}

// HandleNamespace implements Handler.
func (h HandlerFuncs) HandleNamespace(prefix, iri string) error {
	if h.Namespace == nil {
		return nil
	}
	return h.Namespace(prefix, iri)
}

// HandleStatement implements Handler.
func (h HandlerFuncs) HandleStatement(s Statement) error {
	if h.Statement == nil {
		return nil
	}
	return h.Statement(s)
}

// Option configures writer behavior.
type Option func(*Options)

// Options configures encoder behavior.
type Options struct {
	// BaseIRI is emitted as @base by Turtle and used as the JSON-LD base.
	BaseIRI string
	// Indent prefixes every Turtle statement line.
	Indent string
	// Compact enables JSON-LD compaction against the declared namespaces.
	Compact bool
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...Option) (Writer, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return newEncoder(w, format, options)
}

// OptBaseIRI sets the base IRI.
func OptBaseIRI(base string) Option {
	return func(opts *Options) {
		opts.BaseIRI = base
	}
}

// OptIndent sets the per-statement indent for Turtle.
func OptIndent(indent string) Option {
	return func(opts *Options) {
		opts.Indent = indent
	}
}

// OptExpandedJSONLD disables JSON-LD compaction.
func OptExpandedJSONLD() Option {
	return func(opts *Options) {
		opts.Compact = false
	}
}

func defaultOptions() Options {
	return Options{Compact: true}
}

// newEncoder creates a writer for the specified format.
func newEncoder(w io.Writer, format Format, opts Options) (Writer, error) {
	switch format {
	case FormatTurtle:
		return newTurtleEncoder(w, opts), nil
	case FormatNTriples:
		return newNTriplesEncoder(w), nil
	case FormatNQuads:
		return newNQuadsEncoder(w), nil
	case FormatJSONLD:
		return newJSONLDEncoder(w, opts), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
