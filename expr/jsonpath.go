package expr

import (
	"sync"

	"github.com/ohler55/ojg/jp"

	"github.com/geoknoesis/rdf-transform/errs"
)

// JSONPath evaluates JSONPath expressions against the row document, e.g.
// $.cells.name or $.record.rows[*].cells.tag. A single match yields a scalar,
// several yield a list and none yields nil.
type JSONPath struct {
	cache sync.Map // string -> jp.Expr
}

// NewJSONPath returns an evaluator with an empty compiled-path cache.
func NewJSONPath() *JSONPath {
	return &JSONPath{}
}

func (j *JSONPath) Evaluate(expression string, in Input) (any, error) {
	x, err := j.parse(expression)
	if err != nil {
		return nil, err
	}
	results := x.Get(document(in))
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (j *JSONPath) parse(expression string) (jp.Expr, error) {
	if cached, ok := j.cache.Load(expression); ok {
		return cached.(jp.Expr), nil
	}
	x, err := jp.ParseString(expression)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeExprParseInvalid, "parse jsonpath", errs.Field("expression", expression))
	}
	j.cache.Store(expression, x)
	return x, nil
}
