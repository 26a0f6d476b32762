package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/geoknoesis/rdf-transform/errs"
	"github.com/geoknoesis/rdf-transform/rdf"
)

// Validate checks the whole document and reports every problem at once.
func (t *Transform) Validate() error {
	v := &validator{t: t, prefixes: map[string]bool{}}
	v.run()
	if len(v.problems) == 0 {
		return nil
	}
	return errs.New(errs.CodeMappingValidateInvalid,
		"invalid mapping: "+strings.Join(v.problems, "; "),
		errs.Field("problems", v.problems))
}

type validator struct {
	t        *Transform
	prefixes map[string]bool
	problems []string
}

func (v *validator) addf(path, format string, args ...any) {
	v.problems = append(v.problems, path+": "+fmt.Sprintf(format, args...))
}

func (v *validator) run() {
	if v.t.BaseIRI != "" {
		if err := rdf.ValidateAbsoluteIRI(v.t.BaseIRI); err != nil {
			v.addf("baseIRI", "%v", err)
		}
	}
	for i, ns := range v.t.Namespaces {
		path := "namespaces[" + strconv.Itoa(i) + "]"
		switch {
		case ns.Prefix == "" || !rdf.ValidPrefix(ns.Prefix):
			v.addf(path, "invalid prefix %q", ns.Prefix)
		case v.prefixes[ns.Prefix]:
			v.addf(path, "duplicate prefix %q", ns.Prefix)
		}
		if err := rdf.ValidateAbsoluteIRI(ns.IRI); err != nil {
			v.addf(path, "%v", err)
		}
		v.prefixes[ns.Prefix] = true
	}

	for i, m := range v.t.Subjects {
		path := "subjects[" + strconv.Itoa(i) + "]"
		if m == nil {
			v.addf(path, "missing mapping")
			continue
		}
		if m.Subject == nil {
			v.addf(path+".subject", "missing node")
		} else {
			if m.Subject.kind.IsLiteral() {
				v.addf(path+".subject", "subject cannot be a literal")
			}
			v.node(path+".subject", m.Subject)
		}
		v.properties(path, m.Properties)
	}
}

func (v *validator) properties(parent string, props []Property) {
	for j, p := range props {
		path := parent + ".properties[" + strconv.Itoa(j) + "]"
		if p.Predicate == nil {
			v.addf(path+".predicate", "missing node")
		} else {
			if p.Predicate.kind.IsLiteral() || p.Predicate.kind.IsBlank() {
				v.addf(path+".predicate", "predicate must be a resource, got %s", p.Predicate.kind)
			}
			v.node(path+".predicate", p.Predicate)
		}
		if p.Object == nil {
			v.addf(path+".object", "missing node")
		} else {
			if p.Object.kind.IsLiteral() && len(p.Properties) > 0 {
				v.addf(path, "a literal object cannot have properties")
			}
			v.node(path+".object", p.Object)
		}
		v.properties(path, p.Properties)
	}
}

func (v *validator) node(path string, n *Node) {
	if n.kind == ConstantResource && n.value == "" && n.prefix == "" {
		v.addf(path, "empty resource value")
	}
	if n.prefix != "" && !v.prefixes[n.prefix] {
		v.addf(path, "undeclared prefix %q", n.prefix)
	}
	if n.kind.IsCell() && !n.recordIndexed && n.column == "" {
		v.addf(path, "cell node needs a columnName or isRecordIndexed")
	}
	if n.datatype != "" || n.language != "" {
		if !n.kind.IsLiteral() {
			v.addf(path, "datatype and language apply to literals only")
		}
		if n.datatype != "" && n.language != "" {
			v.addf(path, "datatype and language are mutually exclusive")
		}
	}
	if n.language != "" && !rdf.ValidLangTag(n.language) {
		v.addf(path, "invalid language tag %q", n.language)
	}
	if n.datatype != "" {
		if p, _, found := strings.Cut(n.datatype, ":"); !found || (!v.prefixes[p] && !rdf.IsAbsoluteIRI(n.datatype)) {
			v.addf(path, "datatype %q is neither an IRI nor a declared CURIE", n.datatype)
		}
	}
}
