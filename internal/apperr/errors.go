// Package apperr holds the error taxonomy shared by services and handlers.
// Services wrap one of the sentinels below; handlers translate them to HTTP
// status codes with StatusCode.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Use with errors.Is.
var (
	// ErrUnauthorized is returned when no valid credential was presented.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for a valid identity with the wrong role, or a
	// caller that does not own the referenced resource.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed input: date/time formats,
	// missing required fields, disallowed status values.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a referenced appointment, doctor, patient,
	// chat or diet plan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable is returned when the requested range overlaps an
	// existing reservation for the doctor on that date.
	ErrSlotUnavailable = errors.New("time slot not available")

	// ErrConflict is returned when a concurrent writer won the slot lock and
	// the operation could not be serialized.
	ErrConflict = errors.New("conflict")

	// ErrDependency is returned when the store or another collaborator is
	// unreachable or failed.
	ErrDependency = errors.New("dependency failure")

	// ErrTimeout is returned when an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// Unauthorized wraps ErrUnauthorized with a message.
func Unauthorized(msg string) error { return wrap(ErrUnauthorized, msg) }

// Forbidden wraps ErrForbidden with a message.
func Forbidden(msg string) error { return wrap(ErrForbidden, msg) }

// Validation wraps ErrValidation with a message.
func Validation(msg string) error { return wrap(ErrValidation, msg) }

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return wrap(ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a message.
func NotFound(msg string) error { return wrap(ErrNotFound, msg) }

// SlotUnavailable wraps ErrSlotUnavailable with a message.
func SlotUnavailable(msg string) error { return wrap(ErrSlotUnavailable, msg) }

// Conflict wraps ErrConflict with a message.
func Conflict(msg string) error { return wrap(ErrConflict, msg) }

// Dependency classifies a collaborator error. Deadline errors become
// ErrTimeout; anything already classified is returned unchanged.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{kind: ErrTimeout, msg: op + " timed out", cause: err}
	}
	return &Error{kind: ErrDependency, msg: op + " failed", cause: err}
}

// Error carries a user-facing message, its taxonomy kind and an optional cause.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	return e.msg
}

// Is reports whether target is the kind of e. The cause is reachable through Unwrap.
func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

func wrap(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

var kinds = []error{
	ErrUnauthorized, ErrForbidden, ErrValidation, ErrNotFound,
	ErrSlotUnavailable, ErrConflict, ErrDependency, ErrTimeout,
}

// IsClassified returns true if err already belongs to the taxonomy.
func IsClassified(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// IsRetryable returns true for failures that might succeed on a repeated
// idempotent read.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependency)
}

// StatusCode maps an error onto the HTTP status used in responses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrDependency):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
