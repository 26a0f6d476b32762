package transform

import (
	"log/slog"
)

// EventKind names a run event.
type EventKind string

const (
	EventRunStart     EventKind = "run.start"
	EventNamespace    EventKind = "namespace"
	EventRowSkipped   EventKind = "row.skipped"
	EventValueDropped EventKind = "value.dropped"
	EventBatchFlushed EventKind = "batch.flushed"
	EventRunCanceled  EventKind = "run.canceled"
	EventRunEnd       EventKind = "run.end"
	EventRunFailed    EventKind = "run.failed"
)

// Event is a structured observation from an export run.
type Event struct {
	Kind    EventKind
	Phase   string
	Row     int
	Count   int
	Scope   string
	Value   any
	Message string
	Err     error
}

// Observer receives run events. Row-level events may arrive from several
// goroutines when workers > 1.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// Logger is the key/value logging surface NewLogObserver writes to.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// NewLogObserver logs events: row and value events at debug level, run
// failures at error level and everything else at info.
func NewLogObserver(l Logger) Observer {
	return ObserverFunc(func(e Event) {
		kv := []any{"event", string(e.Kind)}
		if e.Phase != "" {
			kv = append(kv, "phase", e.Phase)
		}
		switch e.Kind {
		case EventRowSkipped:
			l.Debug("row skipped", append(kv, "row", e.Row, "scope", e.Scope)...)
		case EventValueDropped:
			kv = append(kv, "row", e.Row, "scope", e.Scope, "value", e.Value, "reason", e.Message)
			if e.Err != nil {
				kv = append(kv, "error", e.Err.Error())
			}
			l.Debug("value dropped", kv...)
		case EventNamespace:
			l.Debug("namespace", append(kv, "prefix", e.Message, "iri", e.Value)...)
		case EventBatchFlushed:
			l.Info("batch flushed", append(kv, "statements", e.Count)...)
		case EventRunCanceled:
			l.Warn("export canceled", append(kv, "statements", e.Count)...)
		case EventRunFailed:
			l.Error("export failed", append(kv, "error", e.Err)...)
		case EventRunEnd:
			l.Info("export finished", append(kv, "statements", e.Count)...)
		default:
			l.Info(e.Message, kv...)
		}
	})
}

// NewSlogObserver logs events to l, or to slog.Default() when l is nil.
func NewSlogObserver(l *slog.Logger) Observer {
	if l == nil {
		l = slog.Default()
	}
	return NewLogObserver(l)
}
