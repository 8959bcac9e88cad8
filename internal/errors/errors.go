package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a kenbot error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD" // 422
	ErrInvalidDocument      ErrorCode = "INVALID_DOCUMENT"       // 422
	ErrCancelled            ErrorCode = "CANCELLED"              // 499
	ErrInternal             ErrorCode = "INTERNAL"               // 500
	ErrUpstream             ErrorCode = "UPSTREAM"               // 502
	ErrGeneratorUnavailable ErrorCode = "GENERATOR_UNAVAILABLE"  // 503
)

// KenbotError represents a structured error with code, status, and details.
type KenbotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *KenbotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *KenbotError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KenbotError {
	return &KenbotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing cached document.
func NewNotFound(identifier string) *KenbotError {
	return &KenbotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("sticker not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewMissingRequiredField creates a 422 error for a record that cannot
// produce a listing, such as one without a usable title.
func NewMissingRequiredField(field string) *KenbotError {
	return &KenbotError{
		Code:    ErrMissingRequiredField,
		Status:  422,
		Message: fmt.Sprintf("vehicle record has no usable %s", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidDocument creates a 422 error when a fetched sticker fails the
// validity policy.
func NewInvalidDocument(reason string, size int) *KenbotError {
	return &KenbotError{
		Code:    ErrInvalidDocument,
		Status:  422,
		Message: fmt.Sprintf("invalid sticker document: %s", reason),
		Details: map[string]any{"reason": reason, "size_bytes": size},
	}
}

// NewCancelled creates a 499 error when the caller gave up.
func NewCancelled(err error) *KenbotError {
	return &KenbotError{
		Code:    ErrCancelled,
		Status:  499,
		Message: "request cancelled",
		cause:   err,
	}
}

// NewUpstream creates a 502 error for a failing remote service.
func NewUpstream(service string, err error) *KenbotError {
	msg := service + " request failed"
	if err != nil {
		msg = fmt.Sprintf("%s request failed: %v", service, err)
	}
	return &KenbotError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"service": service},
		cause:   err,
	}
}

// NewGeneratorUnavailable creates a 503 error when AI generation was requested
// but no text-generation service is configured.
func NewGeneratorUnavailable(reason string) *KenbotError {
	return &KenbotError{
		Code:    ErrGeneratorUnavailable,
		Status:  503,
		Message: fmt.Sprintf("text generator unavailable: %s", reason),
	}
}

// NewInternal creates a 500 error for unexpected internal errors. The cause
// is kept in Details for logging; the message stays generic.
func NewInternal(err error) *KenbotError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &KenbotError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// As returns the KenbotError in err's chain, if any.
func As(err error) (*KenbotError, bool) {
	var kErr *KenbotError
	if stderrors.As(err, &kErr) {
		return kErr, true
	}
	return nil, false
}

// Is checks if an error is (or wraps) a KenbotError with the given code.
func Is(err error, code ErrorCode) bool {
	if kErr, ok := As(err); ok {
		return kErr.Code == code
	}
	return false
}
