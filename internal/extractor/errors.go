package extractor

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped into ExtractError values.
var (
	// ErrEmptyDocument is returned when a document has no content to parse.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrRequiredFieldMissing is reported when a rule marked required
	// matches no usable value. The record still succeeds; the field is
	// absent.
	ErrRequiredFieldMissing = errors.New("required field matched no value")

	// ErrNoNumber is reported when a number transform finds no numeric
	// content in the matched text.
	ErrNoNumber = errors.New("no numeric content")
)

// ErrorKind classifies extraction errors.
type ErrorKind int

const (
	// KindParseFailure means the document could not be parsed as markup
	// at all. This fails the whole record.
	KindParseFailure ErrorKind = iota

	// KindFieldTransformFailure means one field's transform failed.
	// Field failures are absorbed into a partial record and never
	// returned from Extract; the kind exists so logs and tests can
	// classify them.
	KindFieldTransformFailure
)

// String returns the kind's name as used in failure logs.
func (k ErrorKind) String() string {
	switch k {
	case KindParseFailure:
		return "parse_failure"
	case KindFieldTransformFailure:
		return "field_transform_failure"
	default:
		return "unknown"
	}
}

// ExtractError is the error type produced by this package. Callers classify
// with errors.As and inspect Kind; the wrapped error keeps the original
// cause reachable through errors.Is.
type ExtractError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Field names the affected field for transform failures and is empty
	// for parse failures.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error renders the kind, field, and cause.
func (e *ExtractError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extract field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("extract: %s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

func newParseFailure(err error) *ExtractError {
	return &ExtractError{Kind: KindParseFailure, Err: err}
}

func newFieldFailure(field string, err error) *ExtractError {
	return &ExtractError{Kind: KindFieldTransformFailure, Field: field, Err: err}
}
