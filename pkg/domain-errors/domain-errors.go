package domainerrors

import (
	"context"
	"errors"

	"cookiegate/pkg/platform/sentinel"
)

// Code classifies a failure independently of the transport.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeUnauthorized       Code = "unauthorized"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error wraps domain or infrastructure failures with a stable code.
// Fields carries per-field validation detail (field name -> message) when the
// failure was caused by a specific input field.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithFields creates a domain error that carries field-level detail.
func NewWithFields(code Code, msg string, fields map[string]string) error {
	return &Error{Code: code, Message: msg, Fields: fields}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code and fields are preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Fields: existing.Fields, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// FieldsOf returns the field-level detail attached to err, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Translate maps a store-boundary error onto a domain error. Sentinel errors
// and context deadlines get their own code; anything else gets fallback.
func Translate(err error, fallback Code, msg string) error {
	if err == nil {
		return nil
	}
	code := fallback
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		code = CodeNotFound
	case errors.Is(err, sentinel.ErrInvalidInput):
		code = CodeInvalidInput
	case errors.Is(err, sentinel.ErrPayloadTooLarge):
		code = CodeBadRequest
	case errors.Is(err, sentinel.ErrConflict):
		code = CodeConflict
	case errors.Is(err, sentinel.ErrUnavailable):
		code = CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	}
	return Wrap(err, code, msg)
}
