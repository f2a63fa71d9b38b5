// SPDX-License-Identifier: MIT
package errors

import "fmt"

// ErrorCode identifies a class of gateway failure.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE" // 413
	ErrAnalysisFailed  ErrorCode = "ANALYSIS_FAILED"   // 422
	ErrInternal        ErrorCode = "INTERNAL"          // 500
)

// GatewayError is a structured error carrying the HTTP status it maps to.
type GatewayError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for malformed requests.
func NewInvalidRequest(msg string) *GatewayError {
	return &GatewayError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown summary id.
func NewNotFound(id string) *GatewayError {
	return &GatewayError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("session not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewPayloadTooLarge creates a 413 error when an upload exceeds the limit.
func NewPayloadTooLarge(limit int64) *GatewayError {
	return &GatewayError{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("upload exceeds %d bytes", limit),
		Details: map[string]any{"max": limit},
	}
}

// NewAnalysisFailed creates a 422 error wrapping the analyzer's reason.
func NewAnalysisFailed(err error) *GatewayError {
	return &GatewayError{
		Code:    ErrAnalysisFailed,
		Status:  422,
		Message: err.Error(),
		Err:     err,
	}
}

// NewInternal creates a 500 error wrapping an unexpected failure.
func NewInternal(err error) *GatewayError {
	return &GatewayError{
		Code:    ErrInternal,
		Status:  500,
		Message: "internal error",
		Err:     err,
	}
}

// Is reports whether err is a GatewayError with the given code.
func Is(err error, code ErrorCode) bool {
	if ge := As(err); ge != nil {
		return ge.Code == code
	}
	return false
}

// As returns the GatewayError in err's chain, or nil.
func As(err error) *GatewayError {
	for err != nil {
		if ge, ok := err.(*GatewayError); ok {
			return ge
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}
