package transform

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/mapping"
	"github.com/geoknoesis/rdf-transform/rdf"
	"github.com/geoknoesis/rdf-transform/table"
)

// chunkPerWorker bounds how many rows are resolved ahead per worker.
const chunkPerWorker = 64

// Export maps the rows of src with t and hands the namespaces, then the
// statements, to w. It returns the number of statements written. w is not
// closed.
//
// The run stops between rows when ctx is canceled; statements flushed before
// that stay written and the error carries transform.run.canceled.
func Export(ctx context.Context, t *mapping.Transform, src table.Source, w rdf.Handler, opts ...Option) (written int, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if t == nil || src == nil || w == nil {
		if o.Store != nil {
			_ = o.Store.Close()
		}
		return 0, errs.New(errs.CodeTransformInvalidInput, "mapping, source and writer are required")
	}

	o.Observer.Observe(Event{Kind: EventRunStart, Phase: PhaseInit, Message: "export started"})
	defer func() {
		switch {
		case err == nil:
			o.Observer.Observe(Event{Kind: EventRunEnd, Count: written})
		case errs.IsCanceled(err):
			o.Observer.Observe(Event{Kind: EventRunCanceled, Phase: PhaseBuild, Count: written, Err: err})
		default:
			o.Observer.Observe(Event{Kind: EventRunFailed, Phase: errs.PhaseOf(err), Count: written, Err: err})
		}
	}()

	v, err := NewVisitor(ctx, t, w, o)
	if err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(errs.CodeTransformBuildFailure, fmt.Sprintf("export panic: %v", r), errs.FieldPhase(PhaseBuild))
		}
		if cerr := v.Close(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				err = errs.Join(err, cerr)
			}
		}
		written = v.Written()
	}()

	if err := v.Start(); err != nil {
		return 0, err
	}

	r := &run{v: v, opts: o, chunk: make([]table.RowContext, 0, o.Workers*chunkPerWorker)}
	visit := func(rc table.RowContext) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.push(ctx, rc)
	}

	if o.RecordMode {
		err = table.EachRecord(ctx, src, o.RecordKey, o.Filter, visit)
	} else {
		err = table.EachRow(ctx, src, o.Filter, visit)
	}
	if err == nil {
		err = r.drain(ctx)
	}
	if err == nil {
		err = v.Flush(ctx)
	}
	return v.Written(), classify(ctx, err)
}

// run batches row contexts for parallel resolution and periodic flushes.
type run struct {
	v       *Visitor
	opts    Options
	chunk   []table.RowContext
	pending int
}

func (r *run) push(ctx context.Context, rc table.RowContext) error {
	r.chunk = append(r.chunk, rc)
	if len(r.chunk) < cap(r.chunk) && (r.opts.BatchSize == 0 || r.pending+len(r.chunk) < r.opts.BatchSize) {
		return nil
	}
	return r.drain(ctx)
}

// drain resolves the buffered contexts, adds their statements in row order and
// flushes when the batch is full.
func (r *run) drain(ctx context.Context) error {
	if len(r.chunk) == 0 {
		return nil
	}
	results := make([][]rdf.Statement, len(r.chunk))
	if r.opts.Workers == 1 || len(r.chunk) == 1 {
		for i, rc := range r.chunk {
			results[i] = r.v.Build(rc)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Workers)
		for i, rc := range r.chunk {
			g.Go(func() (err error) {
				defer func() {
					if p := recover(); p != nil {
						err = errs.New(errs.CodeTransformBuildFailure, fmt.Sprintf("export panic: %v", p),
							errs.FieldPhase(PhaseBuild), errs.FieldRow(rc.Index()))
					}
				}()
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = r.v.Build(rc)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for _, stmts := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.v.Add(ctx, stmts); err != nil {
			return err
		}
		r.pending++
		if r.opts.BatchSize > 0 && r.pending >= r.opts.BatchSize {
			if err := r.v.Flush(ctx); err != nil {
				return err
			}
			r.pending = 0
		}
	}
	r.chunk = r.chunk[:0]
	return nil
}

// classify maps context errors onto the canceled code and attaches the build
// phase to row source errors.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
			if errors.Is(err, context.DeadlineExceeded) {
				cause = context.DeadlineExceeded
			}
		}
		phase := errs.PhaseOf(err)
		if phase == "" {
			phase = PhaseBuild
		}
		return errs.Wrap(cause, errs.CodeTransformCanceled, "export canceled",
			errs.FieldPhase(phase), errs.Field("cause", err.Error()))
	}
	if errs.CodeOf(err) == "" {
		return errs.Wrap(err, errs.CodeTransformBuildFailure, "read rows", errs.FieldPhase(PhaseBuild))
	}
	if errs.PhaseOf(err) == "" {
		return errs.With(err, errs.FieldPhase(PhaseBuild))
	}
	return err
}
