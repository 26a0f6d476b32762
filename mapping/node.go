// Package mapping holds the declarative mapping tree and resolves its nodes
// into RDF terms for one row or record.
//
// Nodes are immutable once built and may be shared by concurrent exports.
// Everything a resolution needs (base IRI, namespaces, evaluator) arrives in
// an EvalContext.
package mapping

import (
	"strings"
	"unicode"

	"github.com/geoknoesis/rdf-transform/expr"
)

// Kind discriminates node variants.
type Kind uint8

const (
	ConstantResource Kind = iota
	ConstantLiteral
	ConstantBlank
	CellResource
	CellLiteral
	CellBlank
)

var kindNames = [...]string{
	ConstantResource: "resource",
	ConstantLiteral:  "literal",
	ConstantBlank:    "blank",
	CellResource:     "cell-as-resource",
	CellLiteral:      "cell-as-literal",
	CellBlank:        "cell-as-blank",
}

// String returns the persisted nodeType of k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a persisted nodeType back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsCell reports whether values come from the row rather than the mapping.
func (k Kind) IsCell() bool { return k >= CellResource }

// IsLiteral reports whether the node produces literals.
func (k Kind) IsLiteral() bool { return k == ConstantLiteral || k == CellLiteral }

// IsBlank reports whether the node produces blank nodes.
func (k Kind) IsBlank() bool { return k == ConstantBlank || k == CellBlank }

// Node is one element of a mapping tree.
type Node struct {
	kind          Kind
	value         string
	prefix        string
	column        string
	expression    string
	datatype      string
	language      string
	recordIndexed bool
}

// NodeOption configures optional node attributes.
type NodeOption func(*Node)

// WithPrefix makes the node value a local name under the declared prefix.
func WithPrefix(prefix string) NodeOption {
	return func(n *Node) { n.prefix = stripSpace(prefix) }
}

// WithExpression sets the cell expression ("lang:code" or default language).
func WithExpression(expression string) NodeOption {
	return func(n *Node) {
		if strings.TrimSpace(expression) == expr.Identity {
			expression = ""
		}
		n.expression = expression
	}
}

// WithDatatype sets the literal datatype, an IRI or a CURIE.
func WithDatatype(datatype string) NodeOption {
	return func(n *Node) { n.datatype = stripSpace(datatype) }
}

// WithLanguage sets the literal language tag.
func WithLanguage(lang string) NodeOption {
	return func(n *Node) { n.language = strings.TrimSpace(lang) }
}

// RecordIndexed binds the node to the row or record index instead of a column.
func RecordIndexed() NodeOption {
	return func(n *Node) { n.recordIndexed = true }
}

// NewConstantResource returns a node that always yields iri. Whitespace is
// removed from iri.
func NewConstantResource(iri string, opts ...NodeOption) *Node {
	return newNode(ConstantResource, stripSpace(iri), "", opts)
}

// NewConstantLiteral returns a node that always yields the literal lexical.
func NewConstantLiteral(lexical string, opts ...NodeOption) *Node {
	return newNode(ConstantLiteral, lexical, "", opts)
}

// NewConstantBlank returns a node that yields one blank node per row or
// record. label distinguishes otherwise identical constant blanks.
func NewConstantBlank(label string, opts ...NodeOption) *Node {
	return newNode(ConstantBlank, stripSpace(label), "", opts)
}

// NewCellResource returns a node that turns cell values of column into IRIs.
func NewCellResource(column string, opts ...NodeOption) *Node {
	return newNode(CellResource, "", column, opts)
}

// NewCellLiteral returns a node that turns cell values of column into literals.
func NewCellLiteral(column string, opts ...NodeOption) *Node {
	return newNode(CellLiteral, "", column, opts)
}

// NewCellBlank returns a node yielding a blank node per non-blank cell value.
func NewCellBlank(column string, opts ...NodeOption) *Node {
	return newNode(CellBlank, "", column, opts)
}

func newNode(kind Kind, value, column string, opts []NodeOption) *Node {
	n := &Node{kind: kind, value: value, column: column}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Kind is the node's variant.
func (n *Node) Kind() Kind { return n.kind }

// Value is the constant value (IRI, lexical form or blank label).
func (n *Node) Value() string { return n.value }

// Prefix is the declared namespace prefix the value is expanded against, if any.
func (n *Node) Prefix() string { return n.prefix }

// Column is the source column; empty for constants and index nodes.
func (n *Node) Column() string { return n.column }

// Expression returns the cell expression, "value" when unset.
func (n *Node) Expression() string {
	if n.expression == "" {
		return expr.Identity
	}
	return n.expression
}

// Datatype is the literal datatype as an IRI or CURIE; empty for plain literals.
func (n *Node) Datatype() string { return n.datatype }

// Language is the literal language tag; empty when unset.
func (n *Node) Language() string { return n.language }

// IsRecordIndexed reports whether the node is evaluated once per record with
// the record index as its value.
func (n *Node) IsRecordIndexed() bool { return n.recordIndexed }

func stripSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
