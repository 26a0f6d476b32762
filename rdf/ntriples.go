package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseNTriplesLine decodes one N-Triples (or N-Quads) statement line.
func ParseNTriplesLine(line string) (Statement, error) {
	cursor := &ntCursor{input: line}
	stmt, err := cursor.parseStatement()
	if err != nil {
		return Statement{}, &ParseError{Format: "ntriples", Statement: line, Column: cursor.pos + 1, Err: err}
	}
	return stmt, nil
}

// ParseTerm decodes a single N-Triples term (IRI, blank node or literal).
func ParseTerm(text string) (Term, error) {
	cursor := &ntCursor{input: text}
	term, err := cursor.parseTerm(true)
	if err != nil {
		return nil, &ParseError{Format: "ntriples", Statement: text, Column: cursor.pos + 1, Err: err}
	}
	cursor.skipWS()
	if cursor.pos != len(cursor.input) {
		return nil, &ParseError{Format: "ntriples", Statement: text, Column: cursor.pos + 1, Err: fmt.Errorf("trailing input")}
	}
	return term, nil
}

type ntCursor struct {
	input string
	pos   int
}

func (c *ntCursor) parseStatement() (Statement, error) {
	subject, err := c.parseTerm(false)
	if err != nil {
		return Statement{}, err
	}
	predicate, err := c.parseIRI()
	if err != nil {
		return Statement{}, err
	}
	object, err := c.parseTerm(true)
	if err != nil {
		return Statement{}, err
	}
	var graph Term
	c.skipWS()
	if c.pos < len(c.input) && c.input[c.pos] != '.' {
		graph, err = c.parseTerm(false)
		if err != nil {
			return Statement{}, err
		}
	}
	if !c.consume('.') {
		return Statement{}, fmt.Errorf("expected '.' at end of statement")
	}
	return Statement{S: subject, P: predicate, O: object, G: graph}, nil
}

func (c *ntCursor) skipWS() {
	for c.pos < len(c.input) {
		switch c.input[c.pos] {
		case ' ', '\t', '\r', '\n':
			c.pos++
		default:
			return
		}
	}
}

func (c *ntCursor) consume(ch byte) bool {
	c.skipWS()
	if c.pos < len(c.input) && c.input[c.pos] == ch {
		c.pos++
		return true
	}
	return false
}

func (c *ntCursor) parseTerm(allowLiteral bool) (Term, error) {
	c.skipWS()
	if c.pos >= len(c.input) {
		return nil, fmt.Errorf("unexpected end of line")
	}
	switch {
	case c.input[c.pos] == '<':
		return c.parseIRI()
	case strings.HasPrefix(c.input[c.pos:], "_:"):
		return c.parseBlankNode()
	case c.input[c.pos] == '"':
		if !allowLiteral {
			return nil, fmt.Errorf("literal not allowed here")
		}
		return c.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected token")
	}
}

func (c *ntCursor) parseIRI() (IRI, error) {
	if !c.consume('<') {
		return IRI{}, fmt.Errorf("expected IRI")
	}
	start := c.pos
	for c.pos < len(c.input) && c.input[c.pos] != '>' {
		c.pos++
	}
	if c.pos >= len(c.input) {
		return IRI{}, fmt.Errorf("unterminated IRI")
	}
	value := c.input[start:c.pos]
	c.pos++
	return IRI{Value: value}, nil
}

func (c *ntCursor) parseBlankNode() (BlankNode, error) {
	c.pos += 2
	start := c.pos
	for c.pos < len(c.input) && !isTermDelimiter(c.input[c.pos]) {
		c.pos++
	}
	if start == c.pos {
		return BlankNode{}, fmt.Errorf("blank node id missing")
	}
	return BlankNode{ID: c.input[start:c.pos]}, nil
}

func (c *ntCursor) parseLiteral() (Literal, error) {
	if !c.consume('"') {
		return Literal{}, fmt.Errorf("expected literal")
	}
	var builder strings.Builder
	closed := false
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		if ch == '"' {
			c.pos++
			closed = true
			break
		}
		if ch != '\\' {
			builder.WriteByte(ch)
			c.pos++
			continue
		}
		if c.pos+1 >= len(c.input) {
			return Literal{}, fmt.Errorf("unterminated escape")
		}
		next := c.input[c.pos+1]
		switch next {
		case 'n':
			builder.WriteByte('\n')
		case 't':
			builder.WriteByte('\t')
		case 'r':
			builder.WriteByte('\r')
		case 'b':
			builder.WriteByte('\b')
		case 'f':
			builder.WriteByte('\f')
		case '"', '\\', '\'':
			builder.WriteByte(next)
		case 'u', 'U':
			width := 4
			if next == 'U' {
				width = 8
			}
			if c.pos+2+width > len(c.input) {
				return Literal{}, fmt.Errorf("short unicode escape")
			}
			code, err := strconv.ParseUint(c.input[c.pos+2:c.pos+2+width], 16, 32)
			if err != nil {
				return Literal{}, fmt.Errorf("invalid unicode escape: %w", err)
			}
			builder.WriteRune(rune(code))
			c.pos += width
		default:
			return Literal{}, fmt.Errorf("invalid escape \\%c", next)
		}
		c.pos += 2
	}
	if !closed {
		return Literal{}, fmt.Errorf("unterminated literal")
	}
	lexical := builder.String()
	if strings.HasPrefix(c.input[c.pos:], "@") {
		c.pos++
		start := c.pos
		for c.pos < len(c.input) && !isTermDelimiter(c.input[c.pos]) {
			c.pos++
		}
		return Literal{Lexical: lexical, Lang: c.input[start:c.pos]}, nil
	}
	if strings.HasPrefix(c.input[c.pos:], "^^") {
		c.pos += 2
		dt, err := c.parseIRI()
		if err != nil {
			return Literal{}, err
		}
		return Literal{Lexical: lexical, Datatype: dt}, nil
	}
	return Literal{Lexical: lexical}, nil
}

func isTermDelimiter(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '.':
		return true
	default:
		return false
	}
}

type ntEncoder struct {
	writer *bufio.Writer
	format Format
	err    error
	closed bool
}

func newNTriplesEncoder(w io.Writer) Writer {
	return &ntEncoder{writer: bufio.NewWriter(w), format: FormatNTriples}
}

func newNQuadsEncoder(w io.Writer) Writer {
	return &ntEncoder{writer: bufio.NewWriter(w), format: FormatNQuads}
}

// HandleNamespace is a no-op: N-Triples and N-Quads have no prefix syntax.
func (e *ntEncoder) HandleNamespace(prefix, iri string) error {
	if e.closed {
		return ErrWriterClosed
	}
	return e.err
}

func (e *ntEncoder) HandleStatement(s Statement) error {
	if e.closed {
		return ErrWriterClosed
	}
	if e.err != nil {
		return e.err
	}
	if !s.Valid() {
		return fmt.Errorf("%s: %w", e.format, ErrInvalidStatement)
	}
	line := renderTerm(s.S) + " " + renderIRI(s.P) + " " + renderTerm(s.O)
	if e.format == FormatNQuads && s.G != nil {
		line += " " + renderTerm(s.G)
	}
	line += " .\n"
	_, err := e.writer.WriteString(line)
	if err != nil {
		e.err = err
	}
	return err
}

func (e *ntEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.writer.Flush()
}

func (e *ntEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.Flush()
}

func renderIRI(iri IRI) string {
	return "<" + iri.Value + ">"
}

func renderTerm(term Term) string {
	switch value := term.(type) {
	case IRI:
		return renderIRI(value)
	case BlankNode:
		return value.String()
	case Literal:
		return renderLiteral(value, renderIRI)
	default:
		return ""
	}
}

func renderLiteral(l Literal, datatype func(IRI) string) string {
	quoted := `"` + escapeLexical(l.Lexical) + `"`
	if l.Lang != "" {
		return quoted + "@" + l.Lang
	}
	if l.Datatype.Value != "" && l.Datatype.Value != XSDString {
		return quoted + "^^" + datatype(l.Datatype)
	}
	return quoted
}

// escapeLexical applies the N-Triples ECHAR/UCHAR escapes.
func escapeLexical(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7F {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
