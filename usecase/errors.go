package usecase

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindPrecondition ErrorKind = "precondition"
	KindUnauthorized ErrorKind = "unauthorized"
	KindDelivery     ErrorKind = "delivery"
)

// AppError is the error every service returns for a failure the caller can act on.
// Anything else is an internal failure.
type AppError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(field, reason string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Field:   field,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
	}
}

func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func NewPreconditionError(message string) *AppError {
	return &AppError{Kind: KindPrecondition, Message: message}
}

func NewAuthError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewDeliveryError(err error) *AppError {
	return &AppError{Kind: KindDelivery, Message: "email delivery failed", Err: err}
}

// KindOf returns the kind of an AppError anywhere in err's chain, or "" for internal errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Errors reported by OTPStore implementations.
var (
	ErrCodeNotIssued   = errors.New("no active code for this email")
	ErrCodeMismatch    = errors.New("code does not match")
	ErrTooManyAttempts = errors.New("too many attempts for this code")
)
