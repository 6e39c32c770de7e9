package event

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes one invalid field in an event payload.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaViolationError rejects a malformed payload at commit time, before
// anything is appended to the log. Retrying with the same payload cannot
// succeed.
type SchemaViolationError struct {
	Kind       string
	Violations []FieldError
}

func (e *SchemaViolationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("schema violation in %s: %s", e.Kind, strings.Join(msgs, "; "))
}

// IsSchemaViolation reports whether err is (or wraps) a SchemaViolationError.
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolationError
	return errors.As(err, &sv)
}

// UnknownKindError indicates an event name no payload type claims. This is
// version skew between the writer of the log and this code - fatal, never
// retried.
type UnknownKindError struct {
	Name string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown event kind %q", e.Name)
}

// IsUnknownKind reports whether err is (or wraps) an UnknownKindError.
func IsUnknownKind(err error) bool {
	var uk *UnknownKindError
	return errors.As(err, &uk)
}

// CheckValid wraps a payload's field errors into a SchemaViolationError,
// or returns nil when the payload is well-formed.
func CheckValid(p Payload) error {
	if errs := p.Validate(); len(errs) > 0 {
		return &SchemaViolationError{Kind: p.EventName(), Violations: errs}
	}
	return nil
}
