// Package apierr defines request-level errors: a status code plus the
// title/detail pair rendered into the "errors" array of a response document.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"resource-mapper/internal/host"
)

// Error is a request error that is always locally recoverable.
type Error struct {
	Status int
	Title  string
	Detail string
	// Err is the underlying cause, if any. It is never rendered.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Title
	}

	return e.Title + ": " + e.Detail
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest reports a malformed or semantically invalid payload or query.
func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Title: "Bad Request", Detail: fmt.Sprintf(format, args...)}
}

// Forbidden reports an operation the caller may not perform.
func Forbidden(format string, args ...any) *Error {
	return &Error{Status: http.StatusForbidden, Title: "Forbidden", Detail: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing record.
func NotFound(title, detail string) *Error {
	return &Error{Status: http.StatusNotFound, Title: title, Detail: detail}
}

// MethodNotAllowed reports a verb that the addressed resource does not support.
func MethodNotAllowed(format string, args ...any) *Error {
	return &Error{Status: http.StatusMethodNotAllowed, Title: "Method Not Allowed", Detail: fmt.Sprintf(format, args...)}
}

// Internal is the generic 500 body. The cause is kept for logging only.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Title: "Unexpected error", Detail: "See server logs", Err: err}
}

// IsBadRequest reports whether err is (or wraps) a 400 error.
func IsBadRequest(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusBadRequest
}

// From converts any error into a response error. Collaborator sentinels map
// to 404/403; everything unrecognized becomes Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, host.ErrNotFound):
		return &Error{Status: http.StatusNotFound, Title: "Not Found", Detail: err.Error(), Err: err}
	case errors.Is(err, host.ErrForbidden):
		return &Error{Status: http.StatusForbidden, Title: "Forbidden", Detail: err.Error(), Err: err}
	}

	return Internal(err)
}
