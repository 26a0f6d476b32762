package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

// jsonldEncoder buffers statements as N-Quads and converts them with the
// json-gold processor on Close. JSON-LD has no streaming form that preserves
// compaction, so the whole document is produced at once.
type jsonldEncoder struct {
	w          io.Writer
	opts       Options
	namespaces []Namespace
	nquads     strings.Builder
	count      int
	started    bool
	closed     bool
}

func newJSONLDEncoder(w io.Writer, opts Options) Writer {
	return &jsonldEncoder{w: w, opts: opts}
}

func (e *jsonldEncoder) HandleNamespace(prefix, iri string) error {
	if e.closed {
		return ErrWriterClosed
	}
	if e.started {
		return fmt.Errorf("jsonld: %w", ErrNamespaceAfterStatement)
	}
	for i, ns := range e.namespaces {
		if ns.Prefix == prefix {
			e.namespaces[i].IRI = iri
			return nil
		}
	}
	e.namespaces = append(e.namespaces, Namespace{Prefix: prefix, IRI: iri})
	return nil
}

func (e *jsonldEncoder) HandleStatement(s Statement) error {
	if e.closed {
		return ErrWriterClosed
	}
	if !s.Valid() {
		return fmt.Errorf("jsonld: %w", ErrInvalidStatement)
	}
	e.started = true
	e.nquads.WriteString(s.Key())
	e.nquads.WriteString(" .\n")
	e.count++
	return nil
}

// Flush is a no-op; output is produced on Close.
func (e *jsonldEncoder) Flush() error {
	if e.closed {
		return ErrWriterClosed
	}
	return nil
}

func (e *jsonldEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	proc := ld.NewJsonLdProcessor()
	goldOpts := ld.NewJsonLdOptions(e.opts.BaseIRI)
	goldOpts.Format = "application/n-quads"

	var doc interface{} = []interface{}{}
	if e.count > 0 {
		expanded, err := proc.FromRDF(e.nquads.String(), goldOpts)
		if err != nil {
			return fmt.Errorf("jsonld: from rdf: %w", err)
		}
		doc = expanded
	}

	if e.opts.Compact && len(e.namespaces) > 0 {
		compacted, err := proc.Compact(doc, map[string]interface{}{"@context": e.context()}, ld.NewJsonLdOptions(e.opts.BaseIRI))
		if err != nil {
			return fmt.Errorf("jsonld: compact: %w", err)
		}
		doc = compacted
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonld: marshal: %w", err)
	}
	out = append(out, '\n')
	if _, err := e.w.Write(out); err != nil {
		return err
	}
	return nil
}

// context maps each namespace to a JSON-LD term; the empty prefix becomes @vocab.
func (e *jsonldEncoder) context() map[string]interface{} {
	ctx := make(map[string]interface{}, len(e.namespaces))
	for _, ns := range e.namespaces {
		if ns.Prefix == "" {
			ctx["@vocab"] = ns.IRI
			continue
		}
		ctx[ns.Prefix] = ns.IRI
	}
	return ctx
}
