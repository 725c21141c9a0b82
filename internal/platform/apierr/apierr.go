// Package apierr carries failures that already know their HTTP shape:
// authentication and session errors raised below the handlers.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is shown to the client as Status, Code and Message. Cause is for
// logs only and never reaches the response body.
type Error struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

func newf(status int, code, format string, args ...any) *Error {
	return &Error{Status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(code, format string, args ...any) *Error {
	return newf(http.StatusBadRequest, code, format, args...)
}

func Unauthorized(code, format string, args ...any) *Error {
	return newf(http.StatusUnauthorized, code, format, args...)
}

func Forbidden(code, format string, args ...any) *Error {
	return newf(http.StatusForbidden, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return newf(http.StatusNotFound, code, format, args...)
}

func Unavailable(code, format string, args ...any) *Error {
	return newf(http.StatusServiceUnavailable, code, format, args...)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}
