package aggregates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/housedesk-backend/internal/domain/requests"
)

// ErrorCode standardizes aggregate failure semantics across domains.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation"
	CodeNotFound          ErrorCode = "not_found"
	CodeDenied            ErrorCode = "denied"
	CodeIllegalTransition ErrorCode = "illegal_transition"
	// CodeConflict is a lost optimistic-concurrency race (concurrent modification).
	CodeConflict  ErrorCode = "conflict"
	CodeRetryable ErrorCode = "retryable"
	CodeInternal  ErrorCode = "internal"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given aggregate code.
func IsCode(err error, code ErrorCode) bool {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return false
	}
	return aggErr.Code == code
}

// CodeOf extracts the aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// DeniedError is the detail carried by CodeDenied errors.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "denied: " + e.Reason }

// IllegalTransitionError is the detail carried by CodeIllegalTransition errors.
type IllegalTransitionError struct {
	From requests.Status
	To   requests.Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

func Denied(op, reason string) error {
	return NewError(CodeDenied, op, reason, &DeniedError{Reason: reason})
}

func IllegalTransition(op string, from, to requests.Status) error {
	detail := &IllegalTransitionError{From: from, To: to}
	return NewError(CodeIllegalTransition, op, detail.Error(), detail)
}

func ConcurrentModification(op, message string) error {
	return NewError(CodeConflict, op, message, nil)
}

// DeniedReason returns the gate reason when err is a denial.
func DeniedReason(err error) (string, bool) {
	var d *DeniedError
	if errors.As(err, &d) {
		return d.Reason, true
	}
	return "", false
}

// IllegalTransitionOf returns the rejected pair when err is an illegal transition.
func IllegalTransitionOf(err error) (*IllegalTransitionError, bool) {
	var it *IllegalTransitionError
	if errors.As(err, &it) {
		return it, true
	}
	return nil, false
}
