// Package engineerr defines the closed, tagged error taxonomy returned on
// the wire by every engine operation. Errors never bubble transport-level
// exceptions; every failure path in this repo returns an *Error.
package engineerr

import "fmt"

// Code is one of the wire error codes from spec.md §6.
type Code string

const (
	Unauthorized                       Code = "UNAUTHORIZED"
	Forbidden                          Code = "FORBIDDEN"
	InsufficientScope                  Code = "INSUFFICIENT_SCOPE"
	NotFound                           Code = "NOT_FOUND"
	SchemaInvalid                      Code = "SCHEMA_INVALID"
	ConstraintViolation                Code = "CONSTRAINT_VIOLATION"
	Conflict                           Code = "CONFLICT"
	IdempotencyKeyReusePayloadMismatch Code = "IDEMPOTENCY_KEY_REUSE_PAYLOAD_MISMATCH"
)

// Error is the closed-set tagged error returned by every engine operation.
type Error struct {
	Code    Code
	Message string
	Reason  string
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New constructs an Error with no details.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithReason attaches a machine-readable reason string (e.g.
// "unknown_key_id", "daily_cap_exceeded") to the error.
func (e *Error) WithReason(reason string) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Reason = reason
	return &clone
}

// WithDetails attaches caller-facing reconciliation details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = details
	return &clone
}

// Is supports errors.Is comparisons against a bare Code sentinel created
// with New, matching on Code alone.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

func Unauthorizedf(reason, format string, args ...interface{}) *Error {
	return New(Unauthorized, fmt.Sprintf(format, args...)).WithReason(reason)
}

func Forbiddenf(reason, format string, args ...interface{}) *Error {
	return New(Forbidden, fmt.Sprintf(format, args...)).WithReason(reason)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

func ConstraintViolationf(format string, args ...interface{}) *Error {
	return New(ConstraintViolation, fmt.Sprintf(format, args...))
}

func SchemaInvalidf(format string, args ...interface{}) *Error {
	return New(SchemaInvalid, fmt.Sprintf(format, args...))
}
