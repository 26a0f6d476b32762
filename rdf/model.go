package rdf

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// TermIRI represents an IRI term.
	TermIRI TermKind = iota
	// TermBlankNode represents a blank node term.
	TermBlankNode
	// TermLiteral represents a literal term.
	TermLiteral
)

// String returns a short name for the kind.
func (k TermKind) String() string {
	switch k {
	case TermIRI:
		return "iri"
	case TermBlankNode:
		return "bnode"
	case TermLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is a value that can appear in RDF statements.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI represents an RDF IRI.
type IRI struct {
	// Value is the IRI string value.
	Value string
}

// Kind returns TermIRI.
func (i IRI) Kind() TermKind { return TermIRI }

// String returns the IRI value.
func (i IRI) String() string { return i.Value }

// BlankNode represents an RDF blank node.
type BlankNode struct {
	// ID is the blank node identifier.
	ID string
}

// Kind returns TermBlankNode.
func (b BlankNode) Kind() TermKind { return TermBlankNode }

// String returns the blank node identifier prefixed with "_:".
func (b BlankNode) String() string { return "_:" + b.ID }

// Literal represents an RDF literal.
// Datatype and Lang are mutually exclusive; a literal with neither is a plain
// (xsd:string) literal.
type Literal struct {
	// Lexical is the lexical form of the literal.
	Lexical string
	// Datatype is the datatype IRI, if any.
	Datatype IRI
	// Lang is the language tag, if any.
	Lang string
}

// Kind returns TermLiteral.
func (l Literal) Kind() TermKind { return TermLiteral }

// String returns the N-Triples form of the literal.
func (l Literal) String() string {
	return renderLiteral(l, renderIRI)
}

// Statement is an RDF triple, or a quad when G is non-nil.
type Statement struct {
	// S is the subject (IRI or BlankNode).
	S Term
	// P is the predicate.
	P IRI
	// O is the object.
	O Term
	// G is the graph name, or nil for the default graph.
	G Term
}

// NewTriple builds a statement in the default graph.
func NewTriple(s Term, p IRI, o Term) Statement {
	return Statement{S: s, P: p, O: o}
}

// IsZero reports whether the statement has no subject/predicate/object.
func (s Statement) IsZero() bool {
	return s.S == nil && s.P.Value == "" && s.O == nil && s.G == nil
}

// Valid reports whether the statement can be serialized: subject must be an IRI
// or blank node, predicate non-empty, object present.
func (s Statement) Valid() bool {
	if s.S == nil || s.O == nil || s.P.Value == "" {
		return false
	}
	return s.S.Kind() != TermLiteral
}

// Key returns the N-Triples rendering of the statement (without the final dot).
// Two statements are equal exactly when their keys are equal.
func (s Statement) Key() string {
	key := renderTerm(s.S) + " " + renderIRI(s.P) + " " + renderTerm(s.O)
	if s.G != nil {
		key += " " + renderTerm(s.G)
	}
	return key
}

// String returns the N-Triples rendering of the statement.
func (s Statement) String() string {
	return s.Key() + " ."
}

// Well-known datatype IRIs.
const (
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
	XSDString     = XSDNamespace + "string"
	XSDInteger    = XSDNamespace + "integer"
	XSDDecimal    = XSDNamespace + "decimal"
	XSDDouble     = XSDNamespace + "double"
	XSDBoolean    = XSDNamespace + "boolean"
	XSDDateTime   = XSDNamespace + "dateTime"
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFLangString = RDFNamespace + "langString"
)
