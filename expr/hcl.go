package expr

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/geoknoesis/rdf-transform/errs"
)

// HCL evaluates HCL native-syntax expressions, e.g.
//
//	"http://example.org/item/${trimspace(value)}"
//	upper(cells.name)
//	split(";", value)
//
// Parsed expressions are cached.
type HCL struct {
	cache     sync.Map // string -> hcl.Expression
	functions map[string]function.Function
}

// NewHCL returns an evaluator with the cty string and collection functions.
func NewHCL() *HCL {
	return &HCL{functions: map[string]function.Function{
		"abs":           stdlib.AbsoluteFunc,
		"ceil":          stdlib.CeilFunc,
		"chomp":         stdlib.ChompFunc,
		"coalesce":      stdlib.CoalesceFunc,
		"concat":        stdlib.ConcatFunc,
		"floor":         stdlib.FloorFunc,
		"format":        stdlib.FormatFunc,
		"int":           stdlib.IntFunc,
		"join":          stdlib.JoinFunc,
		"length":        stdlib.LengthFunc,
		"lower":         stdlib.LowerFunc,
		"max":           stdlib.MaxFunc,
		"min":           stdlib.MinFunc,
		"regex":         stdlib.RegexFunc,
		"regex_replace": stdlib.RegexReplaceFunc,
		"replace":       stdlib.ReplaceFunc,
		"split":         stdlib.SplitFunc,
		"strlen":        stdlib.StrlenFunc,
		"substr":        stdlib.SubstrFunc,
		"title":         stdlib.TitleFunc,
		"trim":          stdlib.TrimFunc,
		"trim_prefix":   stdlib.TrimPrefixFunc,
		"trim_suffix":   stdlib.TrimSuffixFunc,
		"trimspace":     stdlib.TrimSpaceFunc,
		"upper":         stdlib.UpperFunc,
	}}
}

// Functions lists the callable function names.
func (h *HCL) Functions() []string {
	names := make([]string, 0, len(h.functions))
	for name := range h.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (h *HCL) Evaluate(expression string, in Input) (any, error) {
	parsed, err := h.parse(expression)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]cty.Value)
	for k, v := range document(in) {
		vars[k] = toCty(v)
	}
	ctx := &hcl.EvalContext{Variables: vars, Functions: h.functions}

	val, diags := parsed.Value(ctx)
	if diags.HasErrors() {
		return ErrorValue{Message: diags.Error()}, nil
	}
	return fromCty(val), nil
}

// Check parses expression without evaluating it.
func (h *HCL) Check(expression string) error {
	_, err := h.parse(expression)
	return err
}

func (h *HCL) parse(expression string) (hcl.Expression, error) {
	if cached, ok := h.cache.Load(expression); ok {
		return cached.(hcl.Expression), nil
	}
	parsed, diags := hclsyntax.ParseExpression([]byte(expression), "expression", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, errs.Wrap(diags, errs.CodeExprParseInvalid, "parse hcl expression", errs.Field("expression", expression))
	}
	h.cache.Store(expression, parsed)
	return parsed, nil
}

func toCty(v any) cty.Value {
	switch value := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case string:
		return cty.StringVal(value)
	case bool:
		return cty.BoolVal(value)
	case int64:
		return cty.NumberIntVal(value)
	case int:
		return cty.NumberIntVal(int64(value))
	case float64:
		return cty.NumberFloatVal(value)
	case []any:
		if len(value) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(value))
		for i, e := range value {
			elems[i] = toCty(e)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(value) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(value))
		for k, e := range value {
			attrs[k] = toCty(e)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.StringVal(fmt.Sprint(value))
	}
}

func fromCty(v cty.Value) any {
	if v.IsNull() || !v.IsWhollyKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i
			}
		}
		f, _ := bf.Float64()
		return f
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			out = append(out, fromCty(e))
		}
		return out
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			out[k.AsString()] = fromCty(e)
		}
		return out
	default:
		return nil
	}
}
