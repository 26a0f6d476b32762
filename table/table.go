// Package table supplies rows and records to the mapping pipeline.
//
// A Source streams rows in its own order. Records are produced by grouping
// consecutive rows on a key column, and EachRow/EachRecord apply a predicate
// before handing each RowContext to the caller.
package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schema describes the tabular project a source belongs to.
type Schema struct {
	Name    string
	Columns []string
}

// HasColumn reports whether the schema declares column.
func (s Schema) HasColumn(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Row is a single table row. Index is the zero-based position in the source.
type Row struct {
	Index int
	Cells map[string]any
}

// Cell returns the raw value of column, or nil.
func (r Row) Cell(column string) any {
	if r.Cells == nil {
		return nil
	}
	return r.Cells[column]
}

// Record groups consecutive rows sharing a key. Index is the zero-based record
// position; Rows keep source order.
type Record struct {
	Index int
	Rows  []Row
}

// Source streams rows. Each may be single-use for stream-backed sources.
type Source interface {
	Schema() Schema
	Each(ctx context.Context, fn func(Row) error) error
}

// RowContext is the unit a mapping is evaluated against: either one row or a
// whole record.
type RowContext interface {
	// Index is the row index for SingleRow and the record index for RecordGroup.
	Index() int
	// Rows returns the rows in scope, in source order.
	Rows() []Row
	isRowContext()
}

// SingleRow evaluates a mapping against one row.
type SingleRow struct {
	Row Row
}

func (c SingleRow) Index() int  { return c.Row.Index }
func (c SingleRow) Rows() []Row { return []Row{c.Row} }
func (SingleRow) isRowContext() {}

// RecordGroup evaluates a mapping against all rows of a record.
type RecordGroup struct {
	Record Record
}

func (c RecordGroup) Index() int  { return c.Record.Index }
func (c RecordGroup) Rows() []Row { return c.Record.Rows }
func (RecordGroup) isRowContext() {}

// IsBlank reports whether v is nil or a string that is empty after trimming.
func IsBlank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []byte:
		return strings.TrimSpace(string(value)) == ""
	default:
		return false
	}
}

// Lexical renders a scalar cell value as a string. ok is false for values that
// have no scalar form (nil, slices, maps).
func Lexical(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		return value, true
	case []byte:
		return string(value), true
	case bool:
		return strconv.FormatBool(value), true
	case int:
		return strconv.Itoa(value), true
	case int32:
		return strconv.FormatInt(int64(value), 10), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case uint64:
		return strconv.FormatUint(value, 10), true
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case time.Time:
		return value.Format(time.RFC3339), true
	case fmt.Stringer:
		return value.String(), true
	default:
		return "", false
	}
}
