// Package transform turns table rows into RDF statements with a mapping and
// streams them to a writer.
//
// A run moves through four phases: init (open the transient store and
// register namespaces), build (resolve each selected row or record into
// statements), flush (drain the store into the writer and clear it) and
// teardown (close the store exactly once). Value faults never leave the build
// phase; store and writer faults abort the run with the failing phase attached.
package transform

import (
	"context"
	"sync"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/mapping"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/store"
	"github.com/geoknoesis/rdf-transform/table"
)

const (
	PhaseInit     = "init"
	PhaseBuild    = "build"
	PhaseFlush    = "flush"
	PhaseTeardown = "teardown"
)

// Visitor accumulates the statements of one run in a transient store.
type Visitor struct {
	t       *mapping.Transform
	ec      mapping.EvalContext
	store   store.Store
	w       rdf.Handler
	obs     Observer
	written int

	closeOnce sync.Once
	closeErr  error
}

// NewVisitor runs the init phase: it opens the store and registers the base
// IRI under the empty prefix followed by the declared prefixes.
func NewVisitor(ctx context.Context, t *mapping.Transform, w rdf.Handler, opts Options) (*Visitor, error) {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(ctx, opts.StoreBackend, opts.StoreDSN)
		if err != nil {
			return nil, errs.Wrap(err, errs.CodeTransformInitFailure, "open transient store",
				errs.FieldPhase(PhaseInit), errs.FieldBackend(opts.StoreBackend))
		}
	}

	v := &Visitor{t: t, store: st, w: w, obs: obs}
	v.ec = t.EvalContext(opts.Evaluator)
	v.ec.OnDrop = func(d mapping.Drop) {
		obs.Observe(Event{Kind: EventValueDropped, Phase: PhaseBuild, Row: d.Row, Scope: d.Scope, Value: d.Value, Message: d.Reason, Err: d.Err})
	}

	for _, ns := range t.NamespaceTable() {
		if err := st.SetNamespace(ns.Prefix, ns.IRI); err != nil {
			_ = v.Close()
			return nil, errs.Wrap(err, errs.CodeTransformInitFailure, "register namespace",
				errs.FieldPhase(PhaseInit), errs.Field("prefix", ns.Prefix))
		}
	}
	return v, nil
}

// Start hands every registered namespace to the writer. It must run before
// the first Flush.
func (v *Visitor) Start() error {
	namespaces, err := v.store.Namespaces()
	if err != nil {
		return errs.Wrap(err, errs.CodeTransformInitFailure, "read namespaces", errs.FieldPhase(PhaseInit))
	}
	for _, ns := range namespaces {
		if err := v.w.HandleNamespace(ns.Prefix, ns.IRI); err != nil {
			return errs.Wrap(err, errs.CodeTransformInitFailure, "export namespace",
				errs.FieldPhase(PhaseInit), errs.Field("prefix", ns.Prefix))
		}
		v.obs.Observe(Event{Kind: EventNamespace, Phase: PhaseInit, Message: ns.Prefix, Value: ns.IRI})
	}
	return nil
}

// Build resolves the mapping against rc. It only reads shared state and may
// run concurrently for different rows.
func (v *Visitor) Build(rc table.RowContext) []rdf.Statement {
	var out []rdf.Statement
	for i, m := range v.t.Subjects {
		scope := mapping.Scope("", i)
		subjects := resources(m.Subject.Resolve(v.ec.In(scope), rc))
		if len(subjects) == 0 {
			v.obs.Observe(Event{Kind: EventRowSkipped, Phase: PhaseBuild, Row: rc.Index(), Scope: scope})
			continue
		}
		out = v.edges(out, scope, subjects, m.Properties, rc)
	}
	return out
}

type resolvedEdge struct {
	scope      string
	predicates []rdf.IRI
	objects    []rdf.Term
	nested     []mapping.Property
}

// edges appends subjects × predicates × objects for every edge, subject by
// subject in edge order, then descends into nested properties with the
// objects as subjects.
func (v *Visitor) edges(out []rdf.Statement, scope string, subjects []rdf.Term, props []mapping.Property, rc table.RowContext) []rdf.Statement {
	resolved := make([]resolvedEdge, 0, len(props))
	for j, p := range props {
		edgeScope := mapping.Scope(scope, j)
		predicates := iris(p.Predicate.Resolve(v.ec.In(edgeScope+"/p"), rc))
		if len(predicates) == 0 {
			continue
		}
		objects := p.Object.Resolve(v.ec.In(edgeScope), rc)
		if len(objects) == 0 {
			continue
		}
		resolved = append(resolved, resolvedEdge{scope: edgeScope, predicates: predicates, objects: objects, nested: p.Properties})
	}

	for _, s := range subjects {
		for _, e := range resolved {
			for _, p := range e.predicates {
				for _, o := range e.objects {
					out = append(out, rdf.Statement{S: s, P: p, O: o})
				}
			}
		}
	}
	for _, e := range resolved {
		if len(e.nested) == 0 {
			continue
		}
		if nestedSubjects := resources(e.objects); len(nestedSubjects) > 0 {
			out = v.edges(out, e.scope, nestedSubjects, e.nested, rc)
		}
	}
	return out
}

// Add stores the statements of one row or record.
func (v *Visitor) Add(ctx context.Context, stmts []rdf.Statement) error {
	if err := v.store.Add(ctx, stmts...); err != nil {
		return errs.Wrap(err, errs.CodeTransformBuildFailure, "add statements", errs.FieldPhase(PhaseBuild))
	}
	return nil
}

// Visit builds and stores the statements of rc.
func (v *Visitor) Visit(ctx context.Context, rc table.RowContext) error {
	return v.Add(ctx, v.Build(rc))
}

// Flush drains the store into the writer and clears it.
func (v *Visitor) Flush(ctx context.Context) error {
	n := 0
	err := v.store.Each(ctx, func(s rdf.Statement) error {
		if err := v.w.HandleStatement(s); err != nil {
			return errs.Wrap(err, errs.CodeTransformFlushFailure, "handle statement",
				errs.FieldPhase(PhaseFlush), errs.Field("statement", s.String()))
		}
		n++
		return nil
	})
	v.written += n
	if err != nil {
		return errs.Wrap(err, errs.CodeTransformFlushFailure, "flush statements", errs.FieldPhase(PhaseFlush))
	}
	if err := v.store.Clear(ctx); err != nil {
		return errs.Wrap(err, errs.CodeTransformFlushFailure, "clear store", errs.FieldPhase(PhaseFlush))
	}
	if n > 0 {
		v.obs.Observe(Event{Kind: EventBatchFlushed, Phase: PhaseFlush, Count: n})
	}
	return nil
}

// Written returns the number of statements handed to the writer so far.
func (v *Visitor) Written() int { return v.written }

// Close releases the transient store. Only the first call closes it.
func (v *Visitor) Close() error {
	v.closeOnce.Do(func() {
		if err := v.store.Close(); err != nil {
			v.closeErr = errs.Wrap(err, errs.CodeTransformTeardownFailure, "close transient store", errs.FieldPhase(PhaseTeardown))
		}
	})
	return v.closeErr
}

func resources(terms []rdf.Term) []rdf.Term {
	out := terms[:0:0]
	for _, t := range terms {
		if t.Kind() != rdf.TermLiteral {
			out = append(out, t)
		}
	}
	return out
}

func iris(terms []rdf.Term) []rdf.IRI {
	var out []rdf.IRI
	for _, t := range terms {
		if iri, ok := t.(rdf.IRI); ok {
			out = append(out, iri)
		}
	}
	return out
}
