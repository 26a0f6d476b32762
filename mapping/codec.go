package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/geoknoesis/rdf-transform/errs"
)

type nodeJSON struct {
	NodeType        string `json:"nodeType"`
	Value           string `json:"value,omitempty"`
	Prefix          string `json:"prefix,omitempty"`
	ColumnName      string `json:"columnName,omitempty"`
	Expression      string `json:"expression,omitempty"`
	Datatype        string `json:"datatype,omitempty"`
	Language        string `json:"language,omitempty"`
	IsRecordIndexed bool   `json:"isRecordIndexed,omitempty"`
}

// MarshalJSON omits unset attributes and the identity expression.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		NodeType:        n.kind.String(),
		Value:           n.value,
		Prefix:          n.prefix,
		ColumnName:      n.column,
		Expression:      n.expression,
		Datatype:        n.datatype,
		Language:        n.language,
		IsRecordIndexed: n.recordIndexed,
	})
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, ok := ParseKind(raw.NodeType)
	if !ok {
		return fmt.Errorf("unknown nodeType %q", raw.NodeType)
	}

	var opts []NodeOption
	if raw.Prefix != "" {
		opts = append(opts, WithPrefix(raw.Prefix))
	}
	if raw.Expression != "" {
		opts = append(opts, WithExpression(raw.Expression))
	}
	if raw.Datatype != "" {
		opts = append(opts, WithDatatype(raw.Datatype))
	}
	if raw.Language != "" {
		opts = append(opts, WithLanguage(raw.Language))
	}
	if raw.IsRecordIndexed {
		opts = append(opts, RecordIndexed())
	}

	switch kind {
	case ConstantResource:
		*n = *NewConstantResource(raw.Value, opts...)
	case ConstantLiteral:
		*n = *NewConstantLiteral(raw.Value, opts...)
	case ConstantBlank:
		*n = *NewConstantBlank(raw.Value, opts...)
	case CellResource:
		*n = *NewCellResource(raw.ColumnName, opts...)
	case CellLiteral:
		*n = *NewCellLiteral(raw.ColumnName, opts...)
	case CellBlank:
		*n = *NewCellBlank(raw.ColumnName, opts...)
	}
	return nil
}

// Parse decodes a JSON mapping document and validates it.
func Parse(data []byte) (*Transform, error) {
	var t Transform
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, errs.Wrap(err, errs.CodeMappingDecodeInvalid, "decode mapping")
	}
	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseYAML decodes a YAML mapping document with the same field names as the
// JSON form.
func ParseYAML(data []byte) (*Transform, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(err, errs.CodeMappingDecodeInvalid, "decode yaml mapping")
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeMappingDecodeInvalid, "convert yaml mapping")
	}
	return Parse(asJSON)
}

// Load reads a mapping file; .yaml and .yml files are YAML, anything else JSON.
func Load(path string) (*Transform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeMappingLoadReadFailure, "read mapping", errs.FieldPath(path))
	}
	var t *Transform
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		t, err = ParseYAML(data)
	default:
		t, err = Parse(data)
	}
	if err != nil {
		return nil, errs.With(err, errs.FieldPath(path))
	}
	return t, nil
}

// Encode writes t as indented JSON.
func (t *Transform) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return errs.Wrap(err, errs.CodeMappingEncodeFailure, "encode mapping")
	}
	return nil
}

func (t *Transform) normalize() {
	t.BaseIRI = stripSpace(t.BaseIRI)
	for i := range t.Namespaces {
		t.Namespaces[i].Prefix = stripSpace(t.Namespaces[i].Prefix)
		t.Namespaces[i].IRI = stripSpace(t.Namespaces[i].IRI)
	}
}
