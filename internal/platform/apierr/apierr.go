// Package apierr pins an explicit HTTP status onto an error. The response
// layer prefers a pinned status over the domain error kind.
package apierr

import (
	"errors"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Unauthenticated is a 401 for a missing or rejected bearer token.
func Unauthenticated(err error) *Error {
	return New(http.StatusUnauthorized, "unauthorized", err)
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// StatusOf returns the first pinned status in err's chain.
func StatusOf(err error) (int, string, bool) {
	var ae *Error
	if !errors.As(err, &ae) || ae == nil || ae.Status == 0 {
		return 0, "", false
	}
	return ae.Status, ae.Code, true
}
