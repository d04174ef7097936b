package omnikassa

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when a value does not match its AN/ANS format.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrTooLong is returned when a value exceeds its maximum length.
	ErrTooLong = errors.New("value too long")
	// ErrRequired is returned when a mandatory value is missing.
	ErrRequired = errors.New("value required")
	// ErrInvalidValue is returned when a value is outside its enumeration or range.
	ErrInvalidValue = errors.New("invalid value")
	// ErrOrderSealed is returned when an order is modified after it was signed.
	ErrOrderSealed = errors.New("order is signed and can no longer be modified")
)

// FieldError describes a validation failure of a single outbound field.
type FieldError struct {
	Field  string
	Detail string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Field, e.Err, e.Detail)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(field string, err error, format string, args ...any) error {
	return &FieldError{Field: field, Err: err, Detail: fmt.Sprintf(format, args...)}
}
