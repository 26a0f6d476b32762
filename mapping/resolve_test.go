package mapping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/table"
)

func single(cells map[string]any) table.RowContext {
	return table.SingleRow{Row: table.Row{Index: 0, Cells: cells}}
}

// fixed returns an evaluator that always yields result.
func fixed(result any, err error) expr.Evaluator {
	return expr.EvaluatorFunc(func(string, expr.Input) (any, error) { return result, err })
}

func TestConstantResource(t *testing.T) {
	ec := EvalContext{BaseIRI: "http://ex.org/", Namespaces: []rdf.Namespace{{Prefix: "ex", IRI: "http://ex.org/ns#"}}}
	tests := []struct {
		name string
		node *Node
		want []rdf.Term
	}{
		{"absolute", NewConstantResource("http://ex.org/item/1"), []rdf.Term{rdf.IRI{Value: "http://ex.org/item/1"}}},
		{"whitespace stripped", NewConstantResource(" http://ex.org/a b "), []rdf.Term{rdf.IRI{Value: "http://ex.org/ab"}}},
		{"relative", NewConstantResource("item/2"), []rdf.Term{rdf.IRI{Value: "http://ex.org/item/2"}}},
		{"curie", NewConstantResource("ex:Person"), []rdf.Term{rdf.IRI{Value: "http://ex.org/ns#Person"}}},
		{"prefix", NewConstantResource("Person", WithPrefix("ex")), []rdf.Term{rdf.IRI{Value: "http://ex.org/ns#Person"}}},
		{"undeclared prefix", NewConstantResource("Person", WithPrefix("foaf")), nil},
		{"invalid", NewConstantResource("http://ex.org/<bad>"), nil},
		{"empty", NewConstantResource("   "), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.Resolve(ec, single(nil)))
		})
	}
}

func TestPrefixedCellResourceDropsBlankCells(t *testing.T) {
	ec := EvalContext{BaseIRI: "http://ex.org/", Namespaces: []rdf.Namespace{{Prefix: "ex", IRI: "http://ex.org/ns#"}}}
	node := NewCellResource("id", WithPrefix("ex"))

	for _, cell := range []any{"", "   ", nil} {
		assert.Empty(t, node.Resolve(ec, single(map[string]any{"id": cell})), "cell %q", cell)
	}
	assert.Equal(t, []rdf.Term{rdf.IRI{Value: "http://ex.org/ns#42"}},
		node.Resolve(ec, single(map[string]any{"id": " 42 "})))
}

func TestInvalidConstantWithoutBase(t *testing.T) {
	assert.Empty(t, NewConstantResource("not-absolute").Resolve(EvalContext{}, single(nil)))
}

func TestCellLiteral(t *testing.T) {
	ec := EvalContext{}
	tests := []struct {
		name  string
		node  *Node
		cells map[string]any
		want  []rdf.Term
	}{
		{"plain", NewCellLiteral("name"), map[string]any{"name": "Alice"}, []rdf.Term{rdf.Literal{Lexical: "Alice"}}},
		{"empty", NewCellLiteral("name"), map[string]any{"name": ""}, nil},
		{"blank", NewCellLiteral("name"), map[string]any{"name": "  "}, nil},
		{"missing", NewCellLiteral("name"), map[string]any{}, nil},
		{"lexical kept", NewCellLiteral("name"), map[string]any{"name": " a "}, []rdf.Term{rdf.Literal{Lexical: " a "}}},
		{"lang", NewCellLiteral("name", WithLanguage("en")), map[string]any{"name": "x"}, []rdf.Term{rdf.Literal{Lexical: "x", Lang: "en"}}},
		{"datatype", NewCellLiteral("n", WithDatatype("xsd:integer")), map[string]any{"n": 7}, []rdf.Term{rdf.Literal{Lexical: "7", Datatype: rdf.IRI{Value: rdf.XSDInteger}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.Resolve(ec, single(tt.cells)))
		})
	}
}

func TestCellResourceArray(t *testing.T) {
	node := NewCellResource("links", WithExpression(`split(",", value)`))
	var drops []Drop
	ec := EvalContext{OnDrop: func(d Drop) { drops = append(drops, d) }}

	got := node.Resolve(ec, single(map[string]any{"links": "http://ex.org/a,not a uri,http://ex.org/b"}))
	assert.Equal(t, []rdf.Term{rdf.IRI{Value: "http://ex.org/a"}, rdf.IRI{Value: "http://ex.org/b"}}, got)
	require.Len(t, drops, 1)
	assert.Equal(t, "invalid iri", drops[0].Reason)
}

func TestCellResourceArrayFromEvaluator(t *testing.T) {
	ec := EvalContext{Evaluator: fixed([]any{"http://ex.org/a", "not a uri", "http://ex.org/b", expr.ErrorValue{}}, nil)}
	got := NewCellResource("c", WithExpression("anything")).Resolve(ec, single(nil))
	assert.Equal(t, []rdf.Term{rdf.IRI{Value: "http://ex.org/a"}, rdf.IRI{Value: "http://ex.org/b"}}, got)
}

func TestEvaluatorFaultsAreAbsorbed(t *testing.T) {
	tests := []struct {
		name string
		ev   expr.Evaluator
	}{
		{"error", fixed(nil, errors.New("boom"))},
		{"marker", fixed(expr.ErrorValue{Message: "bad"}, nil)},
		{"nil", fixed(nil, nil)},
		{"panic", expr.EvaluatorFunc(func(string, expr.Input) (any, error) { panic("boom") })},
		{"map", fixed(map[string]any{"a": 1}, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := NewCellLiteral("c", WithExpression("x"))
			assert.Empty(t, node.Resolve(EvalContext{Evaluator: tt.ev}, single(map[string]any{"c": "v"})))
		})
	}
}

func TestIdentitySkipsEvaluator(t *testing.T) {
	ec := EvalContext{Evaluator: expr.EvaluatorFunc(func(string, expr.Input) (any, error) {
		t.Fatal("evaluator called for identity expression")
		return nil, nil
	})}
	got := NewCellLiteral("c", WithExpression("value")).Resolve(ec, single(map[string]any{"c": "v"}))
	assert.Equal(t, []rdf.Term{rdf.Literal{Lexical: "v"}}, got)
}

func TestRecordIndexed(t *testing.T) {
	node := NewCellResource("", RecordIndexed(), WithExpression(`"http://ex.org/rec/${value}"`))
	rows := []table.Row{{Index: 4}, {Index: 5}}

	got := node.Resolve(EvalContext{}, table.RecordGroup{Record: table.Record{Index: 2, Rows: rows}})
	assert.Equal(t, []rdf.Term{rdf.IRI{Value: "http://ex.org/rec/2"}}, got)

	got = node.Resolve(EvalContext{}, table.SingleRow{Row: rows[1]})
	assert.Equal(t, []rdf.Term{rdf.IRI{Value: "http://ex.org/rec/5"}}, got)
}

func TestRecordConcatenatesRows(t *testing.T) {
	rows := []table.Row{
		{Index: 0, Cells: map[string]any{"tag": "a"}},
		{Index: 1, Cells: map[string]any{"tag": ""}},
		{Index: 2, Cells: map[string]any{"tag": "c"}},
	}
	got := NewCellLiteral("tag").Resolve(EvalContext{}, table.RecordGroup{Record: table.Record{Rows: rows}})
	assert.Equal(t, []rdf.Term{rdf.Literal{Lexical: "a"}, rdf.Literal{Lexical: "c"}}, got)
}

func TestBlankLabels(t *testing.T) {
	ec := EvalContext{Scope: "0"}
	rc := single(map[string]any{"c": "x"})

	a := NewCellBlank("c").Resolve(ec, rc)
	b := NewCellBlank("c").Resolve(ec, rc)
	require.Len(t, a, 1)
	assert.Equal(t, a, b)

	other := NewCellBlank("c").Resolve(ec.In("1"), rc)
	assert.NotEqual(t, a, other)

	assert.Empty(t, NewCellBlank("c").Resolve(ec, single(map[string]any{"c": ""})))

	constant := NewConstantBlank("").Resolve(ec, table.SingleRow{Row: table.Row{Index: 1}})
	require.Len(t, constant, 1)
	assert.Equal(t, rdf.TermBlankNode, constant[0].Kind())
	assert.NotEqual(t, constant, NewConstantBlank("").Resolve(ec, table.SingleRow{Row: table.Row{Index: 2}}))
}

func TestConstantLiteralIgnoresRow(t *testing.T) {
	node := NewConstantLiteral("fixed", WithDatatype("http://ex.org/dt"))
	want := []rdf.Term{rdf.Literal{Lexical: "fixed", Datatype: rdf.IRI{Value: "http://ex.org/dt"}}}
	assert.Equal(t, want, node.Resolve(EvalContext{}, single(map[string]any{"x": 1})))
	assert.Empty(t, NewConstantLiteral("").Resolve(EvalContext{}, single(nil)))
}
