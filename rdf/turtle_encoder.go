package rdf

import (
	"bufio"
	"fmt"
	"io"
)

// turtleEncoder streams Turtle. Namespaces are buffered until the first
// statement (or Close) and written as @prefix lines in declaration order.
// Consecutive statements sharing a subject are joined with ';'.
type turtleEncoder struct {
	writer     *bufio.Writer
	err        error
	started    bool
	closed     bool
	opts       Options
	namespaces []Namespace
	subject    Term
}

func newTurtleEncoder(w io.Writer, opts Options) Writer {
	return &turtleEncoder{writer: bufio.NewWriter(w), opts: opts}
}

func (e *turtleEncoder) HandleNamespace(prefix, iri string) error {
	if e.closed {
		return ErrWriterClosed
	}
	if e.err != nil {
		return e.err
	}
	if e.started {
		return fmt.Errorf("turtle: %w", ErrNamespaceAfterStatement)
	}
	if !ValidPrefix(prefix) {
		return fmt.Errorf("turtle: invalid prefix %q", prefix)
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

func (e *turtleEncoder) HandleStatement(s Statement) error {
	if e.closed {
		return ErrWriterClosed
	}
	if e.err != nil {
		return e.err
	}
	if !s.Valid() {
		return fmt.Errorf("turtle: %w", ErrInvalidStatement)
	}
	if !e.started {
		if err := e.writeHeader(); err != nil {
			return err
		}
	}

	var line string
	if e.subject != nil && e.subject == s.S {
		line = " ;\n" + e.opts.Indent + "    " + e.renderIRI(s.P) + " " + e.renderTerm(s.O)
	} else {
		if e.subject != nil {
			line = " .\n"
		}
		line += e.opts.Indent + e.renderTerm(s.S) + " " + e.renderIRI(s.P) + " " + e.renderTerm(s.O)
		e.subject = s.S
	}
	return e.write(line)
}

func (e *turtleEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.writer.Flush()
}

func (e *turtleEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.err != nil {
		return e.err
	}
	if !e.started {
		if err := e.writeHeader(); err != nil {
			return err
		}
	}
	if e.subject != nil {
		if err := e.write(" .\n"); err != nil {
			return err
		}
		e.subject = nil
	}
	if err := e.writer.Flush(); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *turtleEncoder) writeHeader() error {
	e.started = true
	if e.opts.BaseIRI != "" {
		if err := e.write("@base <" + e.opts.BaseIRI + "> .\n"); err != nil {
			return err
		}
	}
	for _, ns := range e.namespaces {
		if err := e.write("@prefix " + ns.Prefix + ": <" + ns.IRI + "> .\n"); err != nil {
			return err
		}
	}
	if len(e.namespaces) > 0 || e.opts.BaseIRI != "" {
		return e.write("\n")
	}
	return nil
}

func (e *turtleEncoder) write(s string) error {
	if _, err := e.writer.WriteString(s); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *turtleEncoder) renderIRI(iri IRI) string {
	if qname, ok := Abbreviate(iri.Value, e.namespaces); ok {
		return qname
	}
	return renderIRI(iri)
}

func (e *turtleEncoder) renderTerm(term Term) string {
	switch value := term.(type) {
	case IRI:
		return e.renderIRI(value)
	case Literal:
		return renderLiteral(value, e.renderIRI)
	default:
		return renderTerm(term)
	}
}
