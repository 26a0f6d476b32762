// Package store holds the transient graph of one export run: a set of
// statements in insertion order plus the run's namespaces.
package store

import (
	"context"
	"strings"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/rdf"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Store is a transient statement set. It is owned by one run and is not safe
// for concurrent use.
type Store interface {
	// SetNamespace registers or replaces a prefix.
	SetNamespace(prefix, iri string) error
	// Namespaces returns the prefixes in registration order.
	Namespaces() ([]rdf.Namespace, error)
	// Add inserts statements, ignoring ones already present.
	Add(ctx context.Context, stmts ...rdf.Statement) error
	// Len returns the number of statements held.
	Len() (int, error)
	// Each visits statements in insertion order.
	Each(ctx context.Context, fn func(rdf.Statement) error) error
	// Clear removes all statements and keeps the namespaces.
	Clear(ctx context.Context) error
	// Close releases the store. Calling it again is a no-op.
	Close() error
}

// Open creates a store for backend. dsn is only used by sqlite; an empty dsn
// selects a private in-memory database.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, dsn)
	default:
		return nil, errs.New(errs.CodeStoreBackendUnsupported, "unsupported store backend", errs.FieldBackend(backend))
	}
}

func closedErr(backend string) error {
	return errs.New(errs.CodeStoreClosed, "store is closed", errs.FieldBackend(backend))
}
