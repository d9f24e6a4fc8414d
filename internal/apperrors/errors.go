// Package apperrors defines the error taxonomy surfaced by the HTTP layer.
// Each AppError carries the status code it maps to, so handlers never decide
// codes themselves.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType names a class of application error.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeGateway      ErrorType = "gateway_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// AppError is an application error with HTTP context.
type AppError struct {
	Type    ErrorType
	Message string
	Code    int
	// Fields holds per-field validation messages.
	Fields map[string]string
	// UpstreamStatus and UpstreamBody describe a rejected gateway call.
	UpstreamStatus int
	UpstreamBody   json.RawMessage
	cause          error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// NewValidationError reports bad client input.
func NewValidationError(message string, fields map[string]string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Fields:  fields,
	}
}

// NewUnauthorizedError reports a missing or wrong credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Code:    http.StatusUnauthorized,
	}
}

// NewGatewayError reports a non-2xx answer from the payment processor.
// status is 0 when the processor could not be reached at all.
func NewGatewayError(status int, body []byte, cause error) *AppError {
	msg := fmt.Sprintf("payment gateway responded %d", status)
	if status == 0 {
		msg = "payment gateway unreachable"
	}
	raw := json.RawMessage(body)
	if len(body) > 0 && !json.Valid(body) {
		raw, _ = json.Marshal(string(body))
	}
	return &AppError{
		Type:           ErrorTypeGateway,
		Message:        msg,
		Code:           http.StatusBadGateway,
		UpstreamStatus: status,
		UpstreamBody:   raw,
		cause:          cause,
	}
}

// NewNotFoundError reports an unknown resource.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewInternalError wraps an unexpected failure. The cause is kept for logs
// and never rendered to clients.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		cause:   cause,
	}
}

// GetAppError extracts an AppError from err's chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err's chain holds an AppError of type t.
func IsType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}
