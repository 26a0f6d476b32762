package transform

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/mapping"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/store"
	"github.com/geoknoesis/rdf-transform/table"
)

type call struct {
	prefix, iri string
	stmt        *rdf.Statement
}

// recorder captures writer calls in order.
type recorder struct {
	calls []call
}

func (r *recorder) HandleNamespace(prefix, iri string) error {
	r.calls = append(r.calls, call{prefix: prefix, iri: iri})
	return nil
}

func (r *recorder) HandleStatement(s rdf.Statement) error {
	r.calls = append(r.calls, call{stmt: &s})
	return nil
}

func (r *recorder) statements() []string {
	var out []string
	for _, c := range r.calls {
		if c.stmt != nil {
			out = append(out, c.stmt.String())
		}
	}
	return out
}

func (r *recorder) namespaces() []rdf.Namespace {
	var out []rdf.Namespace
	for _, c := range r.calls {
		if c.stmt == nil {
			out = append(out, rdf.Namespace{Prefix: c.prefix, IRI: c.iri})
		}
	}
	return out
}

// countingStore records how often Close is called.
type countingStore struct {
	store.Store
	mu     sync.Mutex
	closes int
}

func (c *countingStore) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return c.Store.Close()
}

func nameMapping() *mapping.Transform {
	return &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewConstantResource("http://ex.org/item/1"),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/p/name"),
				Object:    mapping.NewCellLiteral("name"),
			}},
		}},
	}
}

func TestScenarioA(t *testing.T) {
	rec := &recorder{}
	n, err := Export(t.Context(), nameMapping(), table.NewMemory("t", []string{"name"}, []any{"Alice"}), rec)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{`<http://ex.org/item/1> <http://ex.org/p/name> "Alice" .`}, rec.statements())
}

func TestScenarioB(t *testing.T) {
	rec := &recorder{}
	n, err := Export(t.Context(), nameMapping(), table.NewMemory("t", []string{"name"}, []any{""}), rec)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.statements())
}

func TestScenarioC(t *testing.T) {
	tr := &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewConstantResource("http://ex.org/s"),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/p"),
				Object:    mapping.NewCellResource("links", mapping.WithExpression("links")),
			}},
		}},
	}
	ev := expr.EvaluatorFunc(func(string, expr.Input) (any, error) {
		return []any{"http://ex.org/a", "not a uri", "http://ex.org/b"}, nil
	})
	rec := &recorder{}
	_, err := Export(t.Context(), tr, table.NewMemory("t", []string{"links"}, []any{"x"}), rec, WithEvaluator(ev))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"<http://ex.org/s> <http://ex.org/p> <http://ex.org/a> .",
		"<http://ex.org/s> <http://ex.org/p> <http://ex.org/b> .",
	}, rec.statements())
}

func TestScenarioD(t *testing.T) {
	tr := &mapping.Transform{
		BaseIRI:    "http://ex.org/",
		Namespaces: []mapping.Namespace{{Prefix: "ex", IRI: "http://ex.org/ns#"}},
		Subjects:   nameMapping().Subjects,
	}
	rec := &recorder{}
	n, err := Export(t.Context(), tr, table.NewMemory("t", []string{"name"}), rec)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []rdf.Namespace{{Prefix: "", IRI: "http://ex.org/"}, {Prefix: "ex", IRI: "http://ex.org/ns#"}}, rec.namespaces())
	assert.Empty(t, rec.statements())
}

func TestCartesian(t *testing.T) {
	tr := &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("s", mapping.WithExpression(`split(" ", value)`)),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/p"),
				Object:    mapping.NewCellLiteral("o", mapping.WithExpression(`split(",", value)`)),
			}},
		}},
	}
	src := table.NewMemory("t", []string{"s", "o"},
		[]any{"http://ex.org/1 http://ex.org/2 http://ex.org/3", "a,b"},
	)
	rec := &recorder{}
	n, err := Export(t.Context(), tr, src, rec)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	seen := map[string]bool{}
	for _, s := range rec.statements() {
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}
	assert.Len(t, seen, 6)
}

func TestEmptySubjectSkipsRowOnly(t *testing.T) {
	tr := &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("id"),
			Properties: []mapping.Property{
				{Predicate: mapping.NewCellResource("pred"), Object: mapping.NewConstantLiteral("x")},
				{Predicate: mapping.NewConstantResource("http://ex.org/q"), Object: mapping.NewConstantLiteral("y")},
			},
		}},
	}
	src := table.NewMemory("t", []string{"id", "pred"},
		[]any{"", "http://ex.org/p"},
		[]any{"http://ex.org/2", "not valid"},
	)
	var mu sync.Mutex
	var skipped []int
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventRowSkipped {
			mu.Lock()
			skipped = append(skipped, e.Row)
			mu.Unlock()
		}
	})
	rec := &recorder{}
	_, err := Export(t.Context(), tr, src, rec, WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, skipped)
	assert.Equal(t, []string{`<http://ex.org/2> <http://ex.org/q> "y" .`}, rec.statements())
}

func TestNestedBlankNode(t *testing.T) {
	tr := &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("id"),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/address"),
				Object:    mapping.NewCellBlank("city"),
				Properties: []mapping.Property{{
					Predicate: mapping.NewConstantResource("http://ex.org/city"),
					Object:    mapping.NewCellLiteral("city"),
				}},
			}},
		}},
	}
	src := table.NewMemory("t", []string{"id", "city"}, []any{"http://ex.org/1", "Paris"})
	rec := &recorder{}
	_, err := Export(t.Context(), tr, src, rec)
	require.NoError(t, err)

	var stmts []rdf.Statement
	for _, c := range rec.calls {
		if c.stmt != nil {
			stmts = append(stmts, *c.stmt)
		}
	}
	require.Len(t, stmts, 2)
	assert.Equal(t, rdf.TermBlankNode, stmts[0].O.Kind())
	assert.Equal(t, stmts[0].O, stmts[1].S)
	assert.Equal(t, rdf.Literal{Lexical: "Paris"}, stmts[1].O)
}

func TestNamespacesPrecedeStatements(t *testing.T) {
	tr := &mapping.Transform{
		BaseIRI:    "http://ex.org/",
		Namespaces: []mapping.Namespace{{Prefix: "ex", IRI: "http://ex.org/ns#"}},
		Subjects:   nameMapping().Subjects,
	}
	src := table.NewMemory("t", []string{"name"}, []any{"a"}, []any{"b"}, []any{"c"})
	rec := &recorder{}
	_, err := Export(t.Context(), tr, src, rec, WithBatchSize(1))
	require.NoError(t, err)

	seenStatement := false
	for _, c := range rec.calls {
		if c.stmt != nil {
			seenStatement = true
			continue
		}
		assert.False(t, seenStatement, "namespace %q after a statement", c.prefix)
	}
	assert.True(t, seenStatement)
}

func wideSource(rows int) *table.Memory {
	src := table.NewMemory("t", []string{"id", "name"})
	for i := range rows {
		src.Append(i, "name")
	}
	return src
}

func wideMapping() *mapping.Transform {
	return &mapping.Transform{
		BaseIRI: "http://ex.org/",
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("id", mapping.WithExpression(`"item/${value}"`)),
			Properties: []mapping.Property{
				{Predicate: mapping.NewConstantResource("http://ex.org/name"), Object: mapping.NewCellLiteral("name", mapping.WithExpression(`"${value}-${rowIndex}"`))},
				{Predicate: mapping.NewConstantResource("http://ex.org/node"), Object: mapping.NewConstantBlank("n")},
			},
		}},
	}
}

func TestBatchingKeepsOrder(t *testing.T) {
	var flushes int
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventBatchFlushed {
			flushes++
		}
	})

	single := &recorder{}
	_, err := Export(t.Context(), wideMapping(), wideSource(10), single)
	require.NoError(t, err)

	batched := &recorder{}
	n, err := Export(t.Context(), wideMapping(), wideSource(10), batched, WithBatchSize(3), WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, 4, flushes)
	assert.Equal(t, single.statements(), batched.statements())
}

func TestWorkersKeepOrder(t *testing.T) {
	sequential := &recorder{}
	_, err := Export(t.Context(), wideMapping(), wideSource(500), sequential)
	require.NoError(t, err)

	parallel := &recorder{}
	n, err := Export(t.Context(), wideMapping(), wideSource(500), parallel, WithWorkers(8), WithBatchSize(70))
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, sequential.statements(), parallel.statements())
}

func TestIdempotentTurtle(t *testing.T) {
	render := func() []byte {
		var buf bytes.Buffer
		w, err := rdf.NewWriter(&buf, rdf.FormatTurtle)
		require.NoError(t, err)
		_, err = Export(t.Context(), wideMapping(), wideSource(5), w)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		return buf.Bytes()
	}
	first := render()
	assert.Equal(t, first, render())
	assert.Contains(t, string(first), "@prefix : <http://ex.org/> .")
}

func TestTurtleOutput(t *testing.T) {
	tr := &mapping.Transform{
		BaseIRI:    "http://ex.org/",
		Namespaces: []mapping.Namespace{{Prefix: "ex", IRI: "http://ex.org/ns#"}},
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("id", mapping.WithExpression(`"item/${value}"`)),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("ex:name"),
				Object:    mapping.NewCellLiteral("name"),
			}},
		}},
	}
	src := table.NewMemory("t", []string{"id", "name"}, []any{"1", "Alice"}, []any{"2", "Bob"})

	var buf bytes.Buffer
	w, err := rdf.NewWriter(&buf, rdf.FormatTurtle)
	require.NoError(t, err)
	_, err = Export(t.Context(), tr, src, w)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	want := "@prefix : <http://ex.org/> .\n" +
		"@prefix ex: <http://ex.org/ns#> .\n" +
		"\n" +
		"<http://ex.org/item/1> ex:name \"Alice\" .\n" +
		"<http://ex.org/item/2> ex:name \"Bob\" .\n"
	assert.Equal(t, want, buf.String())
}

func TestRecordModeAndFilter(t *testing.T) {
	tr := &mapping.Transform{
		BaseIRI: "http://ex.org/",
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("", mapping.RecordIndexed(), mapping.WithExpression(`"rec/${value}"`)),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/tag"),
				Object:    mapping.NewCellLiteral("tag"),
			}},
		}},
	}
	src := table.NewMemory("t", []string{"id", "tag"},
		[]any{"1", "a"},
		[]any{"", "b"},
		[]any{"2", "skip"},
		[]any{"3", "c"},
	)
	keep := expr.Filter(expr.NewRegistry(""), `cells.tag != "skip"`)

	rec := &recorder{}
	_, err := Export(t.Context(), tr, src, rec, WithRecordMode("id"), WithFilter(keep))
	require.NoError(t, err)
	assert.Equal(t, []string{
		`<http://ex.org/rec/0> <http://ex.org/tag> "a" .`,
		`<http://ex.org/rec/0> <http://ex.org/tag> "b" .`,
		`<http://ex.org/rec/2> <http://ex.org/tag> "c" .`,
	}, rec.statements())
}

func TestSQLiteStoreBackend(t *testing.T) {
	memory := &recorder{}
	_, err := Export(t.Context(), wideMapping(), wideSource(20), memory)
	require.NoError(t, err)

	spilled := &recorder{}
	dsn := filepath.Join(t.TempDir(), "graph.db")
	_, err = Export(t.Context(), wideMapping(), wideSource(20), spilled, WithStoreBackend(store.BackendSQLite, dsn), WithBatchSize(7))
	require.NoError(t, err)
	assert.Equal(t, memory.statements(), spilled.statements())
}

func TestCancelBetweenRows(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	st := &countingStore{Store: store.NewMemory()}
	written := 0
	w := rdf.HandlerFuncs{Statement: func(rdf.Statement) error {
		written++
		cancel()
		return nil
	}}
	n, err := Export(ctx, nameMapping(), table.NewMemory("t", []string{"name"}, []any{"a"}, []any{"b"}, []any{"c"}), w,
		WithBatchSize(1), WithStore(st))
	require.Error(t, err)
	assert.True(t, errs.IsCanceled(err), "got %v", err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, written)
	assert.Equal(t, 1, st.closes)
}

func TestWriterFaultIsFatal(t *testing.T) {
	boom := errors.New("disk full")
	st := &countingStore{Store: store.NewMemory()}
	w := rdf.HandlerFuncs{Statement: func(rdf.Statement) error { return boom }}

	_, err := Export(t.Context(), nameMapping(), table.NewMemory("t", []string{"name"}, []any{"a"}), w, WithStore(st))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, errs.HasCode(err, errs.CodeTransformFlushFailure))
	assert.Equal(t, PhaseFlush, errs.PhaseOf(err))
	assert.Equal(t, 1, st.closes)
}

func TestNamespaceFaultIsFatal(t *testing.T) {
	tr := nameMapping()
	tr.BaseIRI = "http://ex.org/"
	st := &countingStore{Store: store.NewMemory()}
	w := rdf.HandlerFuncs{Namespace: func(string, string) error { return errors.New("rejected") }}

	_, err := Export(t.Context(), tr, table.NewMemory("t", []string{"name"}), w, WithStore(st))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeTransformInitFailure))
	assert.Equal(t, PhaseInit, errs.PhaseOf(err))
	assert.Equal(t, 1, st.closes)
}

func TestPanicStillClosesStore(t *testing.T) {
	st := &countingStore{Store: store.NewMemory()}
	w := rdf.HandlerFuncs{Statement: func(rdf.Statement) error { panic("writer bug") }}

	_, err := Export(t.Context(), nameMapping(), table.NewMemory("t", []string{"name"}, []any{"a"}), w, WithStore(st))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writer bug")
	assert.Equal(t, 1, st.closes)
}

func TestWorkerPanicStillClosesStore(t *testing.T) {
	st := &countingStore{Store: store.NewMemory()}
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventRowSkipped {
			panic("observer bug")
		}
	})
	tr := &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("id"),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/p/name"),
				Object:    mapping.NewCellLiteral("name"),
			}},
		}},
	}
	src := table.NewMemory("t", []string{"id", "name"}, []any{"", "a"}, []any{"", "b"}, []any{"", "c"})

	_, err := Export(t.Context(), tr, src, &recorder{}, WithStore(st), WithWorkers(2), WithObserver(obs))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observer bug")
	assert.True(t, errs.HasCode(err, errs.CodeTransformBuildFailure))
	assert.Equal(t, PhaseBuild, errs.PhaseOf(err))
	assert.Equal(t, 1, st.closes)
}

func TestStoreInitFailure(t *testing.T) {
	var failed []Event
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventRunFailed {
			failed = append(failed, e)
		}
	})
	_, err := Export(t.Context(), nameMapping(), table.NewMemory("t", nil), &recorder{},
		WithStoreBackend("nope", ""), WithObserver(obs))
	require.Error(t, err)
	assert.True(t, errs.HasCode(err, errs.CodeStoreBackendUnsupported), "got %s", errs.CodeOf(err))
	assert.Equal(t, PhaseInit, errs.PhaseOf(err))
	require.Len(t, failed, 1)
	assert.Equal(t, PhaseInit, failed[0].Phase)
}

func TestInvalidInput(t *testing.T) {
	_, err := Export(t.Context(), nil, table.NewMemory("t", nil), &recorder{})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestValueDropsAreObserved(t *testing.T) {
	tr := &mapping.Transform{
		Subjects: []*mapping.Mapping{{
			Subject: mapping.NewCellResource("id"),
			Properties: []mapping.Property{{
				Predicate: mapping.NewConstantResource("http://ex.org/p"),
				Object:    mapping.NewConstantLiteral("x"),
			}},
		}},
	}
	var drops []Event
	obs := ObserverFunc(func(e Event) {
		if e.Kind == EventValueDropped {
			drops = append(drops, e)
		}
	})
	_, err := Export(t.Context(), tr, table.NewMemory("t", []string{"id"}, []any{"no iri here"}), &recorder{}, WithObserver(obs))
	require.NoError(t, err)
	require.Len(t, drops, 1)
	assert.Equal(t, "no iri here", drops[0].Value)
	assert.Equal(t, "0", drops[0].Scope)
}
