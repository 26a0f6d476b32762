package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/table"
)

func rowInput(value any, cells map[string]any) Input {
	row := table.Row{Index: 3, Cells: cells}
	return Input{Value: value, Column: "name", Row: row, Context: table.SingleRow{Row: row}}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in         string
		lang, code string
	}{
		{"value", "hcl", "value"},
		{"jsonpath:$.value", "jsonpath", "$.value"},
		{`"http://ex.org/${value}"`, "hcl", `"http://ex.org/${value}"`},
		{"a ? b : c", "hcl", "a ? b : c"},
		{"grel:value.trim()", "grel", "value.trim()"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lang, code := Split(tt.in, "hcl")
			assert.Equal(t, tt.lang, lang)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRegistryIdentity(t *testing.T) {
	r := NewRegistry("")
	for _, e := range []string{"", "value", "hcl:value"} {
		got, err := r.Evaluate(e, rowInput("Alice", nil))
		require.NoError(t, err)
		assert.Equal(t, "Alice", got)
	}
}

func TestRegistryUnknownLanguage(t *testing.T) {
	_, err := NewRegistry("").Evaluate("grel:value.trim()", rowInput("x", nil))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeExprLanguageNotFound))
}

func TestHCLEvaluate(t *testing.T) {
	h := NewHCL()
	cells := map[string]any{"name": " Alice ", "tags": "a;b;c", "age": 42}
	tests := []struct {
		name string
		expr string
		want any
	}{
		{"template", `"http://ex.org/item/${trimspace(value)}"`, "http://ex.org/item/Alice"},
		{"cells", `upper(cells.tags)`, "A;B;C"},
		{"split", `split(";", cells.tags)`, []any{"a", "b", "c"}},
		{"number", `cells.age + 1`, int64(43)},
		{"row index", `rowIndex`, int64(3)},
		{"column", `columnName`, "name"},
		{"no record", `record == null`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Evaluate(tt.expr, rowInput(cells["name"], cells))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHCLFaults(t *testing.T) {
	h := NewHCL()

	_, err := h.Evaluate(`upper(`, rowInput("x", nil))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeExprParseInvalid))

	got, err := h.Evaluate(`upper(missing)`, rowInput("x", nil))
	require.NoError(t, err)
	assert.True(t, IsError(got))
}

func TestHCLRecord(t *testing.T) {
	rows := []table.Row{
		{Index: 0, Cells: map[string]any{"id": "1", "tag": "a"}},
		{Index: 1, Cells: map[string]any{"id": "", "tag": "b"}},
	}
	group := table.RecordGroup{Record: table.Record{Index: 0, Rows: rows}}
	in := Input{Value: int64(0), Row: rows[0], Context: group}

	got, err := NewHCL().Evaluate(`[for r in record.rows : r.cells.tag]`, in)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestJSONPath(t *testing.T) {
	j := NewJSONPath()
	cells := map[string]any{"name": "Alice", "age": 7}

	got, err := j.Evaluate("$.cells.name", rowInput("Alice", cells))
	require.NoError(t, err)
	assert.Equal(t, "Alice", got)

	got, err = j.Evaluate("$.missing", rowInput("Alice", cells))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = j.Evaluate("$.cells[", rowInput("Alice", cells))
	require.Error(t, err)
}

func TestJSONPathRecordRows(t *testing.T) {
	rows := []table.Row{
		{Index: 4, Cells: map[string]any{"tag": "x"}},
		{Index: 5, Cells: map[string]any{"tag": "y"}},
	}
	in := Input{Row: rows[0], Context: table.RecordGroup{Record: table.Record{Index: 2, Rows: rows}}}

	got, err := NewRegistry("").Evaluate("jsonpath:$.record.rows[*].cells.tag", in)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, got)
}

func TestFilter(t *testing.T) {
	src := table.NewMemory("people", []string{"name", "age"},
		[]any{"Alice", 30},
		[]any{"Bob", 12},
		[]any{"Carol", "n/a"},
	)
	keep := Filter(NewRegistry(""), `cells.age >= 18`)

	var names []any
	err := table.EachRow(t.Context(), src, keep, func(rc table.RowContext) error {
		names = append(names, rc.Rows()[0].Cell("name"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"Alice"}, names)
}

func TestFilterEmptySelectsAll(t *testing.T) {
	keep := Filter(NewRegistry(""), "  ")
	assert.True(t, keep(table.SingleRow{}))
}
