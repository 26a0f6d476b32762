// Package rdf provides a compact RDF term model and push-style writers.
//
// Copyright 2026 Geoknoesis LLC (www.geoknoesis.com)
//
// It focuses on the output side of a mapping pipeline:
//   - Terms: IRI, BlankNode and Literal implement Term; Statement holds S/P/O(/G).
//   - Validation: ValidateIRI, ValidateAbsoluteIRI, ResolveIRI, ValidLangTag.
//   - Writers: NewWriter returns a Writer (a Handler with Flush/Close) for
//     Turtle, N-Triples, N-Quads and JSON-LD.
//
// Writers receive every HandleNamespace call before the first HandleStatement
// call. Turtle uses the namespaces for @prefix declarations and prefixed-name
// abbreviation; N-Triples and N-Quads ignore them; JSON-LD compacts against them.
//
// Example:
//
//	w, err := rdf.NewWriter(os.Stdout, rdf.FormatTurtle)
//	if err != nil {
//	    // handle error
//	}
//	_ = w.HandleNamespace("ex", "http://example.org/")
//	_ = w.HandleStatement(rdf.NewTriple(
//	    rdf.IRI{Value: "http://example.org/s"},
//	    rdf.IRI{Value: "http://example.org/p"},
//	    rdf.Literal{Lexical: "o"},
//	))
//	_ = w.Close()
//
// ParseNTriplesLine decodes single N-Triples/N-Quads lines; it is used by the
// SQLite-backed statement store to read terms back.
package rdf
