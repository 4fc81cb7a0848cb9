package apperr

import (
	"errors"   // Error unwrapping
	"net/http" // Status codes
)

// Kind classifies an error for the caller
type Kind int

const (
	KindUnexpected      Kind = iota // Internal failure, detail never shown
	KindValidation                  // Malformed input
	KindConflict                    // Unique claim already taken
	KindAuthentication              // Missing or bad credentials
	KindAuthorization               // Wrong role
	KindNotFound                    // No such resource
	KindTooManyRequests             // Throttled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	}
	return "unexpected"
}

// Status maps a kind to its HTTP status; conflicts are 400 for the portal's existing clients
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Error carries a caller-safe message and, optionally, the underlying cause
type Error struct {
	Kind    Kind   // Classification
	Message string // Safe to show the caller
	Err     error  // Cause, logged only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and message, so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Validation(msg string) *Error     { return newErr(KindValidation, msg) }
func Conflict(msg string) *Error       { return newErr(KindConflict, msg) }
func Authentication(msg string) *Error { return newErr(KindAuthentication, msg) }
func Authorization(msg string) *Error  { return newErr(KindAuthorization, msg) }
func NotFound(msg string) *Error       { return newErr(KindNotFound, msg) }
func TooManyRequests(msg string) *Error {
	return newErr(KindTooManyRequests, msg)
}

// Unexpected wraps an internal failure; msg is for logs only and callers see a generic message
func Unexpected(msg string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}

// Common caller-facing errors
var (
	ErrUserExists         = Conflict("user already exists")
	ErrRollNumberExists   = Conflict("roll number already exists")
	ErrEmployeeIDExists   = Conflict("employee id already exists")
	ErrEmailTaken         = Conflict("email already in use")
	ErrInvalidCredentials = Authentication("invalid credentials")
	ErrUserNotFound       = NotFound("user not found")
	ErrProfileNotFound    = NotFound("profile not found")
)

// KindOf returns the kind of err, KindUnexpected for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// PublicMessage returns the text safe to show a caller
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Message
	}
	return "Internal server error" // Never leak internal detail
}
