package sim

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Step once the controller's step loop has exited.
var ErrStopped = errors.New("controller stopped")

// FieldErrorCode categorizes controller-reported field errors.
type FieldErrorCode string

const (
	// ErrCodeFieldNotFound indicates the path names no registered field.
	ErrCodeFieldNotFound FieldErrorCode = "FIELD_NOT_FOUND"

	// ErrCodeFieldNotWritable indicates a write to a telemetry-only field.
	ErrCodeFieldNotWritable FieldErrorCode = "FIELD_NOT_WRITABLE"

	// ErrCodeFieldType indicates a value whose kind or length does not fit
	// the field.
	ErrCodeFieldType FieldErrorCode = "FIELD_TYPE_MISMATCH"
)

// FieldError is reported by a controller for a read or write it refuses.
type FieldError struct {
	Code    FieldErrorCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// IsFieldNotFound reports whether err is a FIELD_NOT_FOUND field error.
// Uses errors.As to handle wrapped errors.
func IsFieldNotFound(err error) bool {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeFieldNotFound
	}
	return false
}

// IsFieldError reports whether err is any controller field error.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

func fieldNotFound(path string) *FieldError {
	return &FieldError{Code: ErrCodeFieldNotFound, Field: path}
}
