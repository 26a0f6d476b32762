package expr

import (
	"github.com/geoknoesis/rdf-transform/table"
)

// document is the generic view of an Input shared by evaluators:
//
//	value       the bound value
//	columnName  the column name or ""
//	cells       cells of the current row
//	rowIndex    index of the current row
//	row         {index, cells}
//	record      {index, rows: [{index, cells}...]} or null outside record mode
func document(in Input) map[string]any {
	doc := map[string]any{
		"value":      in.Value,
		"columnName": in.Column,
		"cells":      cells(in.Row),
		"rowIndex":   int64(in.Row.Index),
		"row":        rowDocument(in.Row),
		"record":     nil,
	}
	if group, ok := in.Context.(table.RecordGroup); ok {
		rows := make([]any, 0, len(group.Record.Rows))
		for _, row := range group.Record.Rows {
			rows = append(rows, rowDocument(row))
		}
		doc["record"] = map[string]any{
			"index": int64(group.Record.Index),
			"rows":  rows,
		}
	}
	return doc
}

func rowDocument(row table.Row) map[string]any {
	return map[string]any{
		"index": int64(row.Index),
		"cells": cells(row),
	}
}

func cells(row table.Row) map[string]any {
	out := make(map[string]any, len(row.Cells))
	for k, v := range row.Cells {
		out[k] = plain(v)
	}
	return out
}

// plain reduces cell values to the JSON-like types both evaluators understand.
func plain(v any) any {
	switch value := v.(type) {
	case nil, string, bool, int64, float64:
		return value
	case int:
		return int64(value)
	case int32:
		return int64(value)
	case float32:
		return float64(value)
	case []any:
		out := make([]any, len(value))
		for i, e := range value {
			out[i] = plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, e := range value {
			out[k] = plain(e)
		}
		return out
	default:
		if s, ok := table.Lexical(value); ok {
			return s
		}
		return nil
	}
}
