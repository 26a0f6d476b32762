// Package errs carries machine-readable error codes and structured fields on
// top of oops. Codes follow the area.op.reason convention.
package errs

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeTransformInitFailure     Code = "transform.init.failure"
	CodeTransformBuildFailure    Code = "transform.build.failure"
	CodeTransformFlushFailure    Code = "transform.flush.failure"
	CodeTransformTeardownFailure Code = "transform.teardown.failure"
	CodeTransformCanceled        Code = "transform.run.canceled"
	CodeTransformInvalidInput    Code = "transform.run.invalid_input"

	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreOpenFailure        Code = "store.open.failure"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreClosed             Code = "store.connection.closed"

	CodeMappingValidateInvalid Code = "mapping.validate.invalid"
	CodeMappingDecodeInvalid   Code = "mapping.decode.invalid_format"
	CodeMappingLoadReadFailure Code = "mapping.load.read.failure"
	CodeMappingEncodeFailure   Code = "mapping.encode.failure"

	CodeTableSourceFailure Code = "table.source.failure"
	CodeTableOpenFailure   Code = "table.open.failure"
	CodeTableQueryInvalid  Code = "table.query.invalid"

	CodeExprParseInvalid     Code = "expr.parse.invalid"
	CodeExprEvalFailure      Code = "expr.eval.failure"
	CodeExprLanguageNotFound Code = "expr.language.not_found"

	CodeVocabLoadFailure Code = "vocab.load.failure"
	CodeVocabSaveFailure Code = "vocab.save.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeCLIInputInvalid  Code = "cli.input.invalid"
	CodeCLISetupFailure  Code = "cli.setup.failure"
	CodeCLIOutputFailure Code = "cli.output.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// FieldPhase names the export phase (init, build, flush, teardown) that failed.
func FieldPhase(value string) Attr {
	return Field("phase", value)
}

// FieldRow records the source row index.
func FieldRow(value int) Attr {
	return Field("row", value)
}

// FieldPath records a file path or mapping path.
func FieldPath(value string) Attr {
	return Field("path", value)
}

// FieldBackend records the store backend name.
func FieldBackend(value string) Attr {
	return Field("backend", value)
}

// New creates a coded error with optional fields.
func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

// Errorf creates a coded error from a format string.
func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap annotates err with code, msg and fields. It returns nil for a nil err.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeTransformBuildFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// CodeOf returns the innermost code in err's chain, or "" for uncoded errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

// FieldsOf returns the fields merged across err's chain.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

// PhaseOf returns the phase field of err, or "".
func PhaseOf(err error) string {
	phase, _ := FieldsOf(err)["phase"].(string)
	return phase
}

// HasCode reports whether CodeOf(err) equals code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsInvalidInput reports whether err's code has an invalid-input reason.
func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

// IsCanceled reports whether err's code has the canceled reason.
func IsCanceled(err error) bool {
	return reason(CodeOf(err)) == "canceled"
}

// Join combines errors raised while tearing down a run.
func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeTransformTeardownFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
