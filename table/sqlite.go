package table

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/geoknoesis/rdf-transform/errs"
	_ "modernc.org/sqlite"
)

// SQLite streams the result rows of a query against a SQLite database.
type SQLite struct {
	db     *sql.DB
	query  string
	schema Schema
	once   sync.Once
}

// OpenSQLite opens the database at dsn and prepares query. When query is a
// bare table name it is expanded to SELECT * FROM "name" ORDER BY rowid.
func OpenSQLite(ctx context.Context, dsn, query string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTableOpenFailure, "open sqlite", errs.FieldPath(dsn))
	}

	name := strings.TrimSuffix(filepath.Base(dsn), filepath.Ext(dsn))
	if isIdentifier(query) {
		name = query
		query = fmt.Sprintf(`SELECT * FROM "%s" ORDER BY rowid`, query)
	}

	s := &SQLite{db: db, query: query}
	columns, err := s.columns(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.schema = Schema{Name: name, Columns: columns}
	return s, nil
}

func (s *SQLite) Schema() Schema { return s.schema }

func (s *SQLite) Each(ctx context.Context, fn func(Row) error) error {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return errs.Wrap(err, errs.CodeTableQueryInvalid, "query rows", errs.Field("query", s.query))
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	width := len(s.schema.Columns)
	for index := 0; rows.Next(); index++ {
		values := make([]any, width)
		dest := make([]any, width)
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return errs.Wrap(err, errs.CodeTableSourceFailure, "scan row", errs.FieldRow(index))
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := fn(newRow(index, s.schema.Columns, values)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(err, errs.CodeTableSourceFailure, "iterate rows")
	}
	return nil
}

// Close releases the database handle. Safe to call more than once.
func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() { err = s.db.Close() })
	return err
}

func (s *SQLite) columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM ("+s.query+") LIMIT 0")
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTableQueryInvalid, "prepare query", errs.Field("query", s.query))
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeTableQueryInvalid, "read columns")
	}
	return columns, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
