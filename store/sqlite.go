package store

import (
	"context"
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/rdf"
)

const sqliteSchema = `
DROP TABLE IF EXISTS statements;
DROP TABLE IF EXISTS namespaces;
CREATE TABLE namespaces (
	seq    INTEGER PRIMARY KEY AUTOINCREMENT,
	prefix TEXT NOT NULL UNIQUE,
	iri    TEXT NOT NULL
);
CREATE TABLE statements (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	skey TEXT NOT NULL UNIQUE
);`

// SQLite spills the transient graph to a SQLite database, for runs whose
// batches do not fit in memory. Statements are stored in their N-Triples form.
type SQLite struct {
	db     *sql.DB
	dsn    string
	once   sync.Once
	closed bool
}

// OpenSQLite creates (or resets) the store tables in the database at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeStoreOpenFailure, "open sqlite store", errs.FieldPath(dsn))
	}
	// A single connection keeps :memory: databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, errs.CodeStoreOpenFailure, "create store tables", errs.FieldPath(dsn))
	}
	return &SQLite{db: db, dsn: dsn}, nil
}

func (s *SQLite) SetNamespace(prefix, iri string) error {
	if s.closed {
		return closedErr(BackendSQLite)
	}
	_, err := s.db.Exec(`INSERT INTO namespaces (prefix, iri) VALUES (?, ?)
		ON CONFLICT(prefix) DO UPDATE SET iri = excluded.iri`, prefix, iri)
	return s.wrap(err, "set namespace")
}

func (s *SQLite) Namespaces() ([]rdf.Namespace, error) {
	if s.closed {
		return nil, closedErr(BackendSQLite)
	}
	rows, err := s.db.Query(`SELECT prefix, iri FROM namespaces ORDER BY seq`)
	if err != nil {
		return nil, s.wrap(err, "query namespaces")
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []rdf.Namespace
	for rows.Next() {
		var ns rdf.Namespace
		if err := rows.Scan(&ns.Prefix, &ns.IRI); err != nil {
			return nil, s.wrap(err, "scan namespace")
		}
		out = append(out, ns)
	}
	return out, s.wrap(rows.Err(), "iterate namespaces")
}

func (s *SQLite) Add(ctx context.Context, stmts ...rdf.Statement) error {
	if s.closed {
		return closedErr(BackendSQLite)
	}
	if len(stmts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(err, "begin add")
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	insert, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO statements (skey) VALUES (?)`)
	if err != nil {
		return s.wrap(err, "prepare add")
	}
	defer func() { _ = insert.Close() }()

	for _, stmt := range stmts {
		if _, err := insert.ExecContext(ctx, stmt.Key()); err != nil {
			return s.wrap(err, "insert statement")
		}
	}
	return s.wrap(tx.Commit(), "commit add")
}

func (s *SQLite) Len() (int, error) {
	if s.closed {
		return 0, closedErr(BackendSQLite)
	}
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM statements`).Scan(&n)
	return n, s.wrap(err, "count statements")
}

func (s *SQLite) Each(ctx context.Context, fn func(rdf.Statement) error) error {
	if s.closed {
		return closedErr(BackendSQLite)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT skey FROM statements ORDER BY seq`)
	if err != nil {
		return s.wrap(err, "query statements")
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return s.wrap(err, "scan statement")
		}
		stmt, err := rdf.ParseNTriplesLine(key + " .")
		if err != nil {
			return s.wrap(err, "decode statement")
		}
		if err := fn(stmt); err != nil {
			return err
		}
	}
	return s.wrap(rows.Err(), "iterate statements")
}

func (s *SQLite) Clear(ctx context.Context) error {
	if s.closed {
		return closedErr(BackendSQLite)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM statements`)
	return s.wrap(err, "clear statements")
}

func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		s.closed = true
		err = s.wrap(s.db.Close(), "close store")
	})
	return err
}

func (s *SQLite) wrap(err error, msg string) error {
	return errs.Wrap(err, errs.CodeStoreDatabaseFailure, msg, errs.FieldBackend(BackendSQLite), errs.FieldPath(s.dsn))
}
