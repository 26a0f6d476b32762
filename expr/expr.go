// Package expr evaluates cell expressions.
//
// An expression is "lang:code" or bare code in the registry's default
// language. The identity expression is "value". Evaluators either return an
// error (parse fault, unknown language) or an ErrorValue marker for faults
// detected while evaluating; callers treat both the same way.
package expr

import (
	"strings"
	"sync"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/table"
)

// Identity is the expression that returns the raw cell value.
const Identity = "value"

const (
	LanguageHCL      = "hcl"
	LanguageJSONPath = "jsonpath"
)

// Input is what an expression is evaluated against.
type Input struct {
	// Value is bound to `value`: the cell value, or the row/record index for
	// index nodes.
	Value any
	// Column is the column the value was read from, empty for index nodes.
	Column string
	// Row is the row currently in scope.
	Row table.Row
	// Context is the enclosing row or record.
	Context table.RowContext
}

// Evaluator evaluates one expression. Implementations must be safe for
// concurrent use.
type Evaluator interface {
	Evaluate(expression string, in Input) (any, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(expression string, in Input) (any, error)

func (f EvaluatorFunc) Evaluate(expression string, in Input) (any, error) {
	return f(expression, in)
}

// ErrorValue is the error marker an evaluator returns in place of a result.
type ErrorValue struct {
	Message string
}

func (e ErrorValue) Error() string { return e.Message }

// IsError reports whether v is an error marker.
func IsError(v any) bool {
	switch v.(type) {
	case ErrorValue, *ErrorValue:
		return true
	default:
		return false
	}
}

// Registry dispatches expressions to evaluators by language tag.
type Registry struct {
	mu        sync.RWMutex
	languages map[string]Evaluator
	fallback  string
}

// NewRegistry returns a registry with the hcl and jsonpath languages. An empty
// defaultLanguage selects hcl.
func NewRegistry(defaultLanguage string) *Registry {
	if defaultLanguage == "" {
		defaultLanguage = LanguageHCL
	}
	r := &Registry{
		languages: map[string]Evaluator{},
		fallback:  defaultLanguage,
	}
	r.Register(LanguageHCL, NewHCL())
	r.Register(LanguageJSONPath, NewJSONPath())
	return r
}

// Register binds lang to ev, replacing any previous binding.
func (r *Registry) Register(lang string, ev Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[lang] = ev
}

// Languages lists the registered language tags.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.languages))
	for lang := range r.languages {
		out = append(out, lang)
	}
	return out
}

// Evaluate splits the language tag off expression and runs the matching
// evaluator. The empty expression is the identity.
func (r *Registry) Evaluate(expression string, in Input) (any, error) {
	lang, code := Split(expression, r.fallback)
	if strings.TrimSpace(code) == "" || code == Identity {
		return in.Value, nil
	}

	r.mu.RLock()
	ev, ok := r.languages[lang]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.CodeExprLanguageNotFound, "unknown expression language", errs.Field("language", lang))
	}
	return ev.Evaluate(code, in)
}

// Split separates "lang:code". Expressions without a leading language tag are
// returned with fallback.
func Split(expression, fallback string) (lang, code string) {
	idx := strings.IndexByte(expression, ':')
	if idx <= 0 || !isLanguageTag(expression[:idx]) {
		return fallback, expression
	}
	return expression[:idx], expression[idx+1:]
}

func isLanguageTag(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == '_'):
		default:
			return false
		}
	}
	return true
}

// Filter turns a boolean expression into a row predicate. A record is selected
// when any of its rows is. Faults and non-boolean results do not select.
func Filter(ev Evaluator, expression string) table.Predicate {
	if strings.TrimSpace(expression) == "" {
		return table.All
	}
	return func(rc table.RowContext) bool {
		for _, row := range rc.Rows() {
			if matches(ev, expression, Input{Row: row, Context: rc}) {
				return true
			}
		}
		return false
	}
}

func matches(ev Evaluator, expression string, in Input) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	v, err := ev.Evaluate(expression, in)
	if err != nil {
		return false
	}
	b, isBool := v.(bool)
	return isBool && b
}
