package apierr

import (
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Validation reports malformed input. Surfaced verbatim, never retried.
func Validation(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// NotFound reports a missing resource. Also used for non-member access so
// resource existence never leaks.
func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

// Forbidden reports an authorization failure on a resource the caller
// demonstrably knows exists.
func Forbidden(code string, err error) *Error {
	return New(http.StatusForbidden, code, err)
}

// Conflict reports an unmet workflow precondition, named in code.
func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

// Storage reports an object-storage failure after the document-store portion
// of an operation may already have committed.
func Storage(code string, err error) *Error {
	return New(http.StatusBadGateway, code, err)
}
