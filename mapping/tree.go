package mapping

import (
	"strconv"

	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/rdf"
)

// Namespace is a declared prefix.
type Namespace struct {
	Prefix string `json:"prefix"`
	IRI    string `json:"iri"`
}

// Transform is a complete mapping document.
type Transform struct {
	BaseIRI    string      `json:"baseIRI,omitempty"`
	Namespaces []Namespace `json:"namespaces,omitempty"`
	Subjects   []*Mapping  `json:"subjects"`
}

// Mapping is a subject and its outgoing edges.
type Mapping struct {
	Subject    *Node      `json:"subject"`
	Properties []Property `json:"properties,omitempty"`
}

// Property is one (predicate, object) edge. Properties, when present, describe
// the object in turn: every object value becomes the subject of the nested
// edges.
type Property struct {
	Predicate  *Node      `json:"predicate"`
	Object     *Node      `json:"object"`
	Properties []Property `json:"properties,omitempty"`
}

// NamespaceTable returns the namespaces of a run in registration order: the
// base IRI under the empty prefix, then the declared prefixes.
func (t *Transform) NamespaceTable() []rdf.Namespace {
	table := make([]rdf.Namespace, 0, len(t.Namespaces)+1)
	if t.BaseIRI != "" {
		table = append(table, rdf.Namespace{Prefix: "", IRI: t.BaseIRI})
	}
	for _, ns := range t.Namespaces {
		table = append(table, rdf.Namespace{Prefix: ns.Prefix, IRI: ns.IRI})
	}
	return table
}

// EvalContext returns the resolution context of t.
func (t *Transform) EvalContext(ev expr.Evaluator) EvalContext {
	return EvalContext{
		BaseIRI:    t.BaseIRI,
		Namespaces: t.NamespaceTable(),
		Evaluator:  ev,
	}
}

// Columns lists the columns referenced by cell nodes, in tree order, without
// duplicates.
func (t *Transform) Columns() []string {
	seen := map[string]bool{}
	var out []string
	add := func(n *Node) {
		if n == nil || !n.kind.IsCell() || n.recordIndexed || n.column == "" || seen[n.column] {
			return
		}
		seen[n.column] = true
		out = append(out, n.column)
	}
	var walk func([]Property)
	walk = func(props []Property) {
		for _, p := range props {
			add(p.Predicate)
			add(p.Object)
			walk(p.Properties)
		}
	}
	for _, m := range t.Subjects {
		if m == nil {
			continue
		}
		add(m.Subject)
		walk(m.Properties)
	}
	return out
}

// Scope builds the tree position used for blank node labels.
func Scope(parent string, index int) string {
	if parent == "" {
		return strconv.Itoa(index)
	}
	return parent + "/" + strconv.Itoa(index)
}
