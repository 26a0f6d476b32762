package table

import (
	"context"
)

// Predicate decides whether a row or record is selected.
type Predicate func(RowContext) bool

// All selects everything.
func All(RowContext) bool { return true }

// EachRow streams the selected rows of src as SingleRow contexts.
func EachRow(ctx context.Context, src Source, keep Predicate, fn func(RowContext) error) error {
	if keep == nil {
		keep = All
	}
	return src.Each(ctx, func(row Row) error {
		rc := SingleRow{Row: row}
		if !keep(rc) {
			return nil
		}
		return fn(rc)
	})
}

// EachRecord groups the rows of src into records keyed by keyColumn and streams
// the selected ones as RecordGroup contexts. A record starts at every row whose
// key cell is not blank; rows with a blank key join the current record. Rows
// preceding the first keyed row form a record of their own. An empty keyColumn
// uses the first schema column.
func EachRecord(ctx context.Context, src Source, keyColumn string, keep Predicate, fn func(RowContext) error) error {
	if keep == nil {
		keep = All
	}
	if keyColumn == "" {
		if columns := src.Schema().Columns; len(columns) > 0 {
			keyColumn = columns[0]
		}
	}

	var current *Record
	next := 0
	emit := func() error {
		if current == nil {
			return nil
		}
		rc := RecordGroup{Record: *current}
		current = nil
		if !keep(rc) {
			return nil
		}
		return fn(rc)
	}

	err := src.Each(ctx, func(row Row) error {
		if current != nil && IsBlank(row.Cell(keyColumn)) {
			current.Rows = append(current.Rows, row)
			return nil
		}
		if err := emit(); err != nil {
			return err
		}
		current = &Record{Index: next, Rows: []Row{row}}
		next++
		return nil
	})
	if err != nil {
		return err
	}
	return emit()
}

// GroupRecords collects all records of src in memory.
func GroupRecords(ctx context.Context, src Source, keyColumn string) ([]Record, error) {
	var records []Record
	err := EachRecord(ctx, src, keyColumn, nil, func(rc RowContext) error {
		records = append(records, rc.(RecordGroup).Record)
		return nil
	})
	return records, err
}
