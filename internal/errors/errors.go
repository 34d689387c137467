// Package errors defines the client-facing error type shared by services
// and handlers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a DomainError and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindInsufficientFunds
	KindMismatch
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindMismatch:
		return "mismatch"
	default:
		return "internal"
	}
}

// Status maps the kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInsufficientFunds, KindMismatch:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DomainError is a failure the caller can act on.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinel DomainErrors work with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Status returns the HTTP status for the error.
func (e *DomainError) Status() int {
	return e.Kind.Status()
}

// WithDetails returns a copy of e carrying the given details.
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *DomainError) WithMessage(message string) *DomainError {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy of e that wraps cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.Err = cause
	return &cp
}

func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *DomainError {
	return New(KindValidation, code, message)
}

func NotFound(code, message string) *DomainError {
	return New(KindNotFound, code, message)
}

func Unauthorized(code, message string) *DomainError {
	return New(KindUnauthorized, code, message)
}

func Conflict(code, message string) *DomainError {
	return New(KindConflict, code, message)
}

// Internal wraps an unexpected fault.
func Internal(err error) *DomainError {
	return &DomainError{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
		Err:     err,
	}
}

// As extracts a DomainError from err, wrapping anything else as Internal.
func As(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return Internal(err)
}

// KindOf reports the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
