package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeStoreError        ErrorCode = "STORE_ERROR"
)

// DomainError is the error type shared by every layer of the service.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DomainError) Unwrap() error { return e.Err }

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrValidation        = &DomainError{Code: CodeValidation}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition}
	ErrUnauthorized      = &DomainError{Code: CodeUnauthorized}
	ErrConflict          = &DomainError{Code: CodeConflict}
	ErrStore             = &DomainError{Code: CodeStoreError}
)

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewValidationError reports malformed input.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: msg}
}

// NewInvalidTransitionError reports an action that is illegal from the current state.
func NewInvalidTransitionError(from, action string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s booking in status %s", action, from),
	}
}

// NewUnauthorizedError reports an actor acting on a resource it does not own.
func NewUnauthorizedError(msg string) *DomainError {
	return &DomainError{Code: CodeUnauthorized, Message: msg}
}

// NewConflictError reports a lost optimistic update.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: msg}
}

// NewStoreError wraps a transient infrastructure failure.
func NewStoreError(op string, err error) *DomainError {
	return &DomainError{Code: CodeStoreError, Message: op, Err: err}
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsRetryable reports whether the caller may resubmit the same request unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStore)
}
