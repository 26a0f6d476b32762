package table

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/geoknoesis/rdf-transform/errs"
)

// CSV streams rows from delimited text. The first record is the header.
type CSV struct {
	path   string
	open   func() (io.ReadCloser, error)
	comma  rune
	schema Schema
}

// OpenCSV reads the header of the file at path. Each re-opens the file, so the
// source can be iterated more than once.
func OpenCSV(path string, comma rune) (*CSV, error) {
	if comma == 0 {
		comma = ','
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			comma = '\t'
		}
	}
	c := &CSV{
		path:  path,
		comma: comma,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := c.readHeader(name); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCSV wraps a reader. The resulting source is single-use.
func NewCSV(name string, r io.Reader, comma rune) (*CSV, error) {
	if comma == 0 {
		comma = ','
	}
	used := false
	c := &CSV{comma: comma}
	reader := c.reader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTableOpenFailure, "reading csv header", errs.Field("source", name))
	}
	c.schema = Schema{Name: name, Columns: trimHeader(header)}
	c.open = func() (io.ReadCloser, error) {
		if used {
			return nil, errors.New("csv source already consumed")
		}
		used = true
		return &csvRemainder{reader: reader}, nil
	}
	return c, nil
}

func (c *CSV) Schema() Schema { return c.schema }

func (c *CSV) Each(ctx context.Context, fn func(Row) error) error {
	rc, err := c.open()
	if err != nil {
		return errs.Wrap(err, errs.CodeTableSourceFailure, "opening csv", errs.FieldPath(c.path))
	}
	defer func() { _ = rc.Close() }() // read-only

	var reader *csv.Reader
	if rem, ok := rc.(*csvRemainder); ok {
		reader = rem.reader
	} else {
		reader = c.reader(rc)
		if _, err := reader.Read(); err != nil {
			return errs.Wrap(err, errs.CodeTableSourceFailure, "reading csv header", errs.FieldPath(c.path))
		}
	}

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errs.Wrap(err, errs.CodeTableSourceFailure, "reading csv row", errs.FieldPath(c.path), errs.FieldRow(index))
		}
		values := make([]any, len(record))
		for i, v := range record {
			values[i] = v
		}
		if err := fn(newRow(index, c.schema.Columns, values)); err != nil {
			return err
		}
	}
}

func (c *CSV) readHeader(name string) error {
	rc, err := c.open()
	if err != nil {
		return errs.Wrap(err, errs.CodeTableOpenFailure, "opening csv", errs.FieldPath(c.path))
	}
	defer func() { _ = rc.Close() }() // read-only

	header, err := c.reader(rc).Read()
	if err != nil {
		return errs.Wrap(err, errs.CodeTableOpenFailure, "reading csv header", errs.FieldPath(c.path))
	}
	c.schema = Schema{Name: name, Columns: trimHeader(header)}
	return nil
}

func (c *CSV) reader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = c.comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

type csvRemainder struct {
	reader *csv.Reader
}

func (*csvRemainder) Read([]byte) (int, error) { return 0, io.EOF }
func (*csvRemainder) Close() error             { return nil }

func trimHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return columns
}
