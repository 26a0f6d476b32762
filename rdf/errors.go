package rdf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a programmatic error code for error handling.
type ErrorCode string

const (
	// ErrCodeUnsupportedFormat indicates an unsupported format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeWriterClosed indicates a write after Close.
	ErrCodeWriterClosed ErrorCode = "WRITER_CLOSED"
	// ErrCodeInvalidStatement indicates a statement that cannot be serialized.
	ErrCodeInvalidStatement ErrorCode = "INVALID_STATEMENT"
	// ErrCodeNamespaceOrder indicates a namespace declared after the first statement.
	ErrCodeNamespaceOrder ErrorCode = "NAMESPACE_ORDER"
	// ErrCodeParseError indicates a general parse error.
	ErrCodeParseError ErrorCode = "PARSE_ERROR"
	// ErrCodeIOError indicates an I/O error.
	ErrCodeIOError ErrorCode = "IO_ERROR"
)

var (
	// ErrUnsupportedFormat indicates an unsupported format.
	ErrUnsupportedFormat = errors.New("unsupported RDF format")
	// ErrWriterClosed is returned by writers used after Close.
	ErrWriterClosed = errors.New("rdf: writer closed")
	// ErrInvalidStatement is returned for statements missing fields or with a literal subject.
	ErrInvalidStatement = errors.New("rdf: invalid statement")
	// ErrNamespaceAfterStatement is returned when a namespace arrives after a statement was written.
	ErrNamespaceAfterStatement = errors.New("rdf: namespace declared after first statement")
)

// Code returns the error code for an error, or ErrCodeIOError if unknown.
// Returns empty string for nil errors.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrCodeUnsupportedFormat
	case errors.Is(err, ErrWriterClosed):
		return ErrCodeWriterClosed
	case errors.Is(err, ErrInvalidStatement):
		return ErrCodeInvalidStatement
	case errors.Is(err, ErrNamespaceAfterStatement):
		return ErrCodeNamespaceOrder
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrCodeParseError
	}
	return ErrCodeIOError
}

// ParseError provides structured context for N-Triples decoding failures.
type ParseError struct {
	Format    string // Format name (e.g., "ntriples")
	Statement string // Offending input line
	Column    int    // 1-based column number (0 if unknown)
	Err       error  // Underlying error
}

func (e *ParseError) Error() string {
	var msg strings.Builder
	msg.WriteString(e.Format)
	if e.Column > 0 {
		fmt.Fprintf(&msg, ":%d", e.Column)
	}
	msg.WriteString(": ")
	msg.WriteString(e.Err.Error())
	if e.Statement != "" {
		msg.WriteString("\n  ")
		msg.WriteString(e.excerpt())
	}
	return msg.String()
}

func (e *ParseError) excerpt() string {
	const maxExcerptLen = 80
	if len(e.Statement) > maxExcerptLen {
		return e.Statement[:maxExcerptLen] + "..."
	}
	return e.Statement
}

func (e *ParseError) Unwrap() error { return e.Err }
