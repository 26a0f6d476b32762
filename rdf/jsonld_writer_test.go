package rdf

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONLDWriterCompacted(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatJSONLD)
	if err != nil {
		t.Fatalf("NewWriter error: %v", err)
	}
	writeAll(t, w, []Namespace{{Prefix: "foaf", IRI: "http://xmlns.com/foaf/0.1/"}}, []Statement{
		NewTriple(IRI{Value: "http://ex.org/person/1"}, IRI{Value: "http://xmlns.com/foaf/0.1/name"}, Literal{Lexical: "Alice"}),
	})

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not a JSON object: %v\n%s", err, buf.String())
	}
	ctx, ok := doc["@context"].(map[string]any)
	if !ok || ctx["foaf"] != "http://xmlns.com/foaf/0.1/" {
		t.Fatalf("unexpected @context: %v", doc["@context"])
	}
	if doc["@id"] != "http://ex.org/person/1" || doc["foaf:name"] != "Alice" {
		t.Fatalf("unexpected document: %s", buf.String())
	}
}

func TestJSONLDWriterExpanded(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, FormatJSONLD, OptExpandedJSONLD())
	writeAll(t, w, []Namespace{{Prefix: "ex", IRI: "http://ex.org/"}}, []Statement{
		NewTriple(IRI{Value: "http://ex.org/s"}, IRI{Value: "http://ex.org/p"}, Literal{Lexical: "1", Datatype: IRI{Value: XSDInteger}}),
	})

	var doc []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(doc) != 1 || doc[0]["@id"] != "http://ex.org/s" {
		t.Fatalf("unexpected document: %s", buf.String())
	}
	values, ok := doc[0]["http://ex.org/p"].([]any)
	if !ok || len(values) != 1 {
		t.Fatalf("missing property: %s", buf.String())
	}
	if v := values[0].(map[string]any); v["@value"] != "1" || v["@type"] != XSDInteger {
		t.Fatalf("unexpected value: %v", v)
	}
}

func TestJSONLDWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, FormatJSONLD)
	writeAll(t, w, nil, nil)
	if buf.String() != "[]\n" {
		t.Fatalf("got %q", buf.String())
	}
}
