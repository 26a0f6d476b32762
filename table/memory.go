package table

import "context"

// Memory is an in-memory, re-iterable Source.
type Memory struct {
	schema Schema
	rows   [][]any
}

// NewMemory builds a source from positional row values aligned with columns.
// Short rows are padded with nil.
func NewMemory(name string, columns []string, rows ...[]any) *Memory {
	return &Memory{schema: Schema{Name: name, Columns: columns}, rows: rows}
}

// Append adds a row.
func (m *Memory) Append(values ...any) {
	m.rows = append(m.rows, values)
}

func (m *Memory) Schema() Schema { return m.schema }

func (m *Memory) Each(ctx context.Context, fn func(Row) error) error {
	for i, values := range m.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(newRow(i, m.schema.Columns, values)); err != nil {
			return err
		}
	}
	return nil
}

func newRow(index int, columns []string, values []any) Row {
	cells := make(map[string]any, len(columns))
	for i, column := range columns {
		if i < len(values) {
			cells[column] = values[i]
		} else {
			cells[column] = nil
		}
	}
	return Row{Index: index, Cells: cells}
}
