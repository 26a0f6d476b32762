package transform

import (
	"github.com/geoknoesis/rdf-transform/expr"
	"github.com/geoknoesis/rdf-transform/store"
	"github.com/geoknoesis/rdf-transform/table"
)

// Option configures an export run.
type Option func(*Options)

// Options configures an export run.
type Options struct {
	// BatchSize is the number of rows (records in record mode) between
	// flushes; 0 flushes once at the end.
	BatchSize int
	// Workers resolves rows in parallel; statements keep row order.
	Workers int
	// RecordMode evaluates the mapping once per record grouped on RecordKey.
	RecordMode bool
	RecordKey  string
	// Filter selects the rows or records to map.
	Filter table.Predicate

	StoreBackend string
	StoreDSN     string
	// Store, when set, is used instead of opening StoreBackend. The run
	// closes it.
	Store store.Store

	Evaluator expr.Evaluator
	Observer  Observer
}

func defaultOptions() Options {
	return Options{
		Workers:      1,
		StoreBackend: store.BackendMemory,
	}
}

// WithBatchSize flushes every n rows or records.
func WithBatchSize(n int) Option {
	return func(o *Options) { o.BatchSize = n }
}

// WithWorkers resolves up to n rows concurrently.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithRecordMode groups rows into records keyed on keyColumn (first column
// when empty).
func WithRecordMode(keyColumn string) Option {
	return func(o *Options) {
		o.RecordMode = true
		o.RecordKey = keyColumn
	}
}

// WithFilter maps only the rows or records keep selects.
func WithFilter(keep table.Predicate) Option {
	return func(o *Options) { o.Filter = keep }
}

// WithStoreBackend selects the transient store backend.
func WithStoreBackend(backend, dsn string) Option {
	return func(o *Options) {
		o.StoreBackend = backend
		o.StoreDSN = dsn
	}
}

// WithStore hands an open store to the run, which takes ownership of it.
func WithStore(s store.Store) Option {
	return func(o *Options) { o.Store = s }
}

// WithEvaluator sets the expression evaluator used by cell nodes.
func WithEvaluator(ev expr.Evaluator) Option {
	return func(o *Options) { o.Evaluator = ev }
}

// WithObserver sets the sink for run events.
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}
