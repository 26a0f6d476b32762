package store

import (
	"context"

	"github.com/geoknoesis/rdf-transform/rdf"
)

// Memory keeps statements in a slice with a key index.
type Memory struct {
	namespaces []rdf.Namespace
	stmts      []rdf.Statement
	keys       map[string]struct{}
	closed     bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]struct{})}
}

func (m *Memory) SetNamespace(prefix, iri string) error {
	if m.closed {
		return closedErr(BackendMemory)
	}
	for i, ns := range m.namespaces {
		if ns.Prefix == prefix {
			m.namespaces[i].IRI = iri
			return nil
		}
	}
	m.namespaces = append(m.namespaces, rdf.Namespace{Prefix: prefix, IRI: iri})
	return nil
}

func (m *Memory) Namespaces() ([]rdf.Namespace, error) {
	if m.closed {
		return nil, closedErr(BackendMemory)
	}
	return append([]rdf.Namespace(nil), m.namespaces...), nil
}

func (m *Memory) Add(_ context.Context, stmts ...rdf.Statement) error {
	if m.closed {
		return closedErr(BackendMemory)
	}
	for _, s := range stmts {
		key := s.Key()
		if _, ok := m.keys[key]; ok {
			continue
		}
		m.keys[key] = struct{}{}
		m.stmts = append(m.stmts, s)
	}
	return nil
}

func (m *Memory) Len() (int, error) {
	if m.closed {
		return 0, closedErr(BackendMemory)
	}
	return len(m.stmts), nil
}

func (m *Memory) Each(ctx context.Context, fn func(rdf.Statement) error) error {
	if m.closed {
		return closedErr(BackendMemory)
	}
	for _, s := range m.stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Clear(context.Context) error {
	if m.closed {
		return closedErr(BackendMemory)
	}
	m.stmts = nil
	clear(m.keys)
	return nil
}

func (m *Memory) Close() error {
	m.closed = true
	m.stmts = nil
	m.keys = nil
	return nil
}
