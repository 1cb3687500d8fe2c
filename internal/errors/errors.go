// Package errors defines the storage-facing application error type and maps
// driver failures onto it so handlers can pick a status without knowing the backend.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes an AppError.
type ErrorCode string

const (
	ErrCodeNotFound    ErrorCode = "not_found"
	ErrCodeConflict    ErrorCode = "conflict"
	ErrCodeValidation  ErrorCode = "validation"
	ErrCodeUnavailable ErrorCode = "unavailable"
	ErrCodeTimeout     ErrorCode = "timeout"
	ErrCodeCanceled    ErrorCode = "canceled"
	ErrCodeInternal    ErrorCode = "internal"
)

// AppError carries a code, a message safe to show users, and the underlying cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Field   string // column or attribute at fault, when known
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// New returns an AppError without a cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// Message returns the user-facing message of the first AppError in err's chain, or "".
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

func IsNotFound(err error) bool    { return GetCode(err) == ErrCodeNotFound }
func IsConflict(err error) bool    { return GetCode(err) == ErrCodeConflict }
func IsValidation(err error) bool  { return GetCode(err) == ErrCodeValidation }
func IsUnavailable(err error) bool { return GetCode(err) == ErrCodeUnavailable }
func IsTimeout(err error) bool     { return GetCode(err) == ErrCodeTimeout }
