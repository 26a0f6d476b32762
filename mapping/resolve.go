package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/table"
)

// Drop describes a value that was absorbed instead of producing a term.
type Drop struct {
	Scope  string
	Row    int
	Value  any
	Reason string
	Err    error
}

// EvalContext carries what resolution needs for one export run. It is passed
// by value and never stored on a node.
type EvalContext struct {
	BaseIRI    string
	Namespaces []rdf.Namespace
	Evaluator  expr.Evaluator
	// Scope is the position of the node in the mapping tree, e.g. "0/2/1". It
	// keeps blank node labels of different nodes apart.
	Scope string
	// OnDrop, when set, is told about every absorbed value fault.
	OnDrop func(Drop)
}

// In returns a copy of ec scoped to scope.
func (ec EvalContext) In(scope string) EvalContext {
	ec.Scope = scope
	return ec
}

func (ec EvalContext) namespace(prefix string) (string, bool) {
	for _, ns := range ec.Namespaces {
		if ns.Prefix == prefix {
			return ns.IRI, true
		}
	}
	return "", false
}

func (ec EvalContext) drop(row int, value any, reason string, err error) {
	if ec.OnDrop != nil {
		ec.OnDrop(Drop{Scope: ec.Scope, Row: row, Value: value, Reason: reason, Err: err})
	}
}

var defaultEvaluator = sync.OnceValue(func() expr.Evaluator { return expr.NewRegistry("") })

func (ec EvalContext) evaluator() expr.Evaluator {
	if ec.Evaluator != nil {
		return ec.Evaluator
	}
	return defaultEvaluator()
}

// Resolve evaluates n against rc. It never fails: invalid IRIs, blank values,
// expression faults and error markers contribute nothing.
func (n *Node) Resolve(ec EvalContext, rc table.RowContext) []rdf.Term {
	var out []rdf.Term
	switch n.kind {
	case ConstantResource:
		out = ec.appendResource(out, rc.Index(), n.prefix, n.value)
	case ConstantLiteral:
		out = n.appendLiteral(ec, out, rc.Index(), n.value)
	case ConstantBlank:
		out = append(out, blank(ec.Scope, rc.Index(), n.value))
	default:
		out = n.resolveCell(ec, rc, out)
	}
	return out
}

func (n *Node) resolveCell(ec EvalContext, rc table.RowContext, out []rdf.Term) []rdf.Term {
	rows := rc.Rows()
	if n.recordIndexed {
		var row table.Row
		if len(rows) > 0 {
			row = rows[0]
		}
		index := rc.Index()
		in := expr.Input{Value: int64(index), Row: row, Context: rc}
		return n.appendResult(ec, out, index, n.evaluate(ec, index, in))
	}
	for _, row := range rows {
		in := expr.Input{Value: row.Cell(n.column), Column: n.column, Row: row, Context: rc}
		out = n.appendResult(ec, out, row.Index, n.evaluate(ec, row.Index, in))
	}
	return out
}

func (n *Node) evaluate(ec EvalContext, index int, in expr.Input) (result any) {
	if n.expression == "" {
		return in.Value
	}
	defer func() {
		if r := recover(); r != nil {
			ec.drop(index, in.Value, "expression panic", fmt.Errorf("%v", r))
			result = nil
		}
	}()
	v, err := ec.evaluator().Evaluate(n.expression, in)
	if err != nil {
		ec.drop(index, in.Value, "expression fault", err)
		return nil
	}
	if expr.IsError(v) {
		ec.drop(index, in.Value, "error value", nil)
		return nil
	}
	return v
}

func (n *Node) appendResult(ec EvalContext, out []rdf.Term, index int, result any) []rdf.Term {
	if values, ok := result.([]any); ok {
		for _, v := range values {
			if expr.IsError(v) {
				continue
			}
			out = n.appendValue(ec, out, index, v)
		}
		return out
	}
	if result == nil {
		return out
	}
	return n.appendValue(ec, out, index, result)
}

// appendValue normalizes one scalar onto out.
func (n *Node) appendValue(ec EvalContext, out []rdf.Term, index int, v any) []rdf.Term {
	lexical, ok := table.Lexical(v)
	if !ok {
		if v != nil {
			ec.drop(index, v, "not a scalar", nil)
		}
		return out
	}
	switch n.kind {
	case CellLiteral:
		return n.appendLiteral(ec, out, index, lexical)
	case CellBlank:
		if table.IsBlank(lexical) {
			return out
		}
		return append(out, blank(ec.Scope, index, lexical))
	default:
		if table.IsBlank(lexical) {
			return out
		}
		return ec.appendResource(out, index, n.prefix, strings.TrimSpace(lexical))
	}
}

func (n *Node) appendLiteral(ec EvalContext, out []rdf.Term, index int, lexical string) []rdf.Term {
	if table.IsBlank(lexical) {
		return out
	}
	lit := rdf.Literal{Lexical: lexical, Lang: n.language}
	if n.datatype != "" && n.language == "" {
		dt, err := ec.expandDatatype(n.datatype)
		if err != nil {
			ec.drop(index, n.datatype, "invalid datatype", err)
			return out
		}
		lit.Datatype = rdf.IRI{Value: dt}
	}
	return append(out, lit)
}

func (ec EvalContext) appendResource(out []rdf.Term, index int, prefix, value string) []rdf.Term {
	if value == "" && prefix == "" {
		return out
	}
	iri, err := ec.ExpandIRI(prefix, value)
	if err != nil {
		ec.drop(index, value, "invalid iri", err)
		return out
	}
	return append(out, rdf.IRI{Value: iri})
}

// ExpandIRI turns value into an absolute IRI: a prefixed local name, a CURIE
// with a declared prefix, an absolute IRI, or a reference relative to the
// base IRI.
func (ec EvalContext) ExpandIRI(prefix, value string) (string, error) {
	iri := value
	if prefix != "" {
		ns, ok := ec.namespace(prefix)
		if !ok {
			return "", fmt.Errorf("undeclared prefix %q", prefix)
		}
		iri = ns + value
	} else if p, local, found := strings.Cut(value, ":"); found && p != "" && !strings.HasPrefix(local, "//") {
		if ns, ok := ec.namespace(p); ok {
			iri = ns + local
		}
	}

	if !rdf.IsAbsoluteIRI(iri) {
		if ec.BaseIRI == "" {
			return "", fmt.Errorf("relative iri %q without base", iri)
		}
		if err := rdf.ValidateIRI(iri); err != nil {
			return "", err
		}
		resolved, err := rdf.ResolveIRI(ec.BaseIRI, iri)
		if err != nil {
			return "", err
		}
		iri = resolved
	}
	if err := rdf.ValidateAbsoluteIRI(iri); err != nil {
		return "", err
	}
	return iri, nil
}

func (ec EvalContext) expandDatatype(datatype string) (string, error) {
	if local, ok := strings.CutPrefix(datatype, "xsd:"); ok {
		if _, declared := ec.namespace("xsd"); !declared {
			return rdf.XSDNamespace + local, nil
		}
	}
	return ec.ExpandIRI("", datatype)
}

var blankSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:geoknoesis:rdf-transform:blank"))

// blank derives a stable label from the node scope, the row or record index
// and the value, so a rerun over the same input yields the same labels.
func blank(scope string, index int, value string) rdf.BlankNode {
	id := uuid.NewSHA1(blankSpace, []byte(scope+"|"+strconv.Itoa(index)+"|"+value))
	return rdf.BlankNode{ID: "b" + strings.ReplaceAll(id.String(), "-", "")}
}
