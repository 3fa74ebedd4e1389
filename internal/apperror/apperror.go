// Package apperror is the error taxonomy shared by the guards and handlers.
// Every failure that reaches a client is an *Error whose Code and Message
// are safe to serialize; the wrapped cause is for logs only.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidInitData    = "INVALID_INIT_DATA"
	CodeInitDataExpired    = "INIT_DATA_EXPIRED"
	CodeNoUserData         = "NO_USER_DATA"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInternal           = "INTERNAL_ERROR"
	CodeConfiguration      = "CONFIGURATION_ERROR"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so callers can compare
// against the sentinels below regardless of message, details or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e with err attached as the cause.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithMessage returns a copy of e with a different client-facing message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

var (
	ErrValidation         = New(http.StatusBadRequest, CodeValidation, "Validation failed")
	ErrUnauthorized       = New(http.StatusUnauthorized, CodeUnauthorized, "Authentication is required")
	ErrInvalidCredentials = New(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
	ErrInvalidToken       = New(http.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	ErrTokenExpired       = New(http.StatusUnauthorized, CodeTokenExpired, "Token has expired")
	ErrInvalidInitData    = New(http.StatusUnauthorized, CodeInvalidInitData, "Invalid Telegram initData")
	ErrInitDataExpired    = New(http.StatusUnauthorized, CodeInitDataExpired, "Telegram initData has expired")
	ErrNoUserData         = New(http.StatusUnauthorized, CodeNoUserData, "User data not found in initData")
	ErrForbidden          = New(http.StatusForbidden, CodeForbidden, "Access denied")
	ErrNotFound           = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrAlreadyExists      = New(http.StatusBadRequest, CodeAlreadyExists, "Resource already exists")
	ErrInternal           = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrConfiguration      = New(http.StatusInternalServerError, CodeConfiguration, "Server is not configured")
)

// From converts any error into an *Error. Errors outside the taxonomy become
// INTERNAL_ERROR with the original kept as the cause.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}
