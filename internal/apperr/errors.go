// Package apperr carries the failure kinds that the HTTP layer maps to
// status codes.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	InvalidRequest
	Unauthorized
	InvalidCredentials
	Forbidden
	NotFound
	Conflict
	InsufficientStock
	InvalidState
)

var codes = map[Kind]string{
	Internal:           "internal_error",
	InvalidRequest:     "invalid_request",
	Unauthorized:       "unauthorized",
	InvalidCredentials: "invalid_credentials",
	Forbidden:          "forbidden",
	NotFound:           "not_found",
	Conflict:           "conflict",
	InsufficientStock:  "insufficient_stock",
	InvalidState:       "invalid_state",
}

func (k Kind) String() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[Internal]
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case InvalidRequest, InsufficientStock, InvalidState:
		return http.StatusBadRequest
	case Unauthorized, InvalidCredentials:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is of kind k. InsufficientStock also counts as
// InvalidRequest.
func Is(err error, k Kind) bool {
	got := KindOf(err)
	if got == k {
		return err != nil
	}
	return k == InvalidRequest && got == InsufficientStock
}
