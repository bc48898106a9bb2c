package api

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaValidation is matched by every SchemaValidationError via errors.Is
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrInvalidRequest is returned when an EvalRequest fails validation before it is sent
	ErrInvalidRequest = errors.New("invalid evaluation request")
	// ErrLLMGenerationFailed is returned when LLM generation fails
	ErrLLMGenerationFailed = errors.New("LLM generation failed")
	// ErrUnknownMetric is returned when a local judge has no definition for a requested metric
	ErrUnknownMetric = errors.New("unknown metric")
)

// SchemaValidationError reports a payload that does not match the Evaluation response shape.
// Field is the dotted JSON path of the offending field, empty when the whole document is rejected.
type SchemaValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	msg := ErrSchemaValidation.Error()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// Is reports ErrSchemaValidation as a match so callers need not use errors.As for the common case.
func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation
}

func schemaError(field, reason string, err error) *SchemaValidationError {
	return &SchemaValidationError{Field: field, Reason: reason, Err: err}
}

func schemaErrorf(field, format string, args ...any) *SchemaValidationError {
	return schemaError(field, fmt.Sprintf(format, args...), nil)
}
