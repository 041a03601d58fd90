// Package apierr defines the error-kind vocabulary shared by the broadcast
// engine, fetcher adapters, and HTTP layer so a failure can be translated to
// the right status code wherever it surfaces.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with the HTTP-shaped category it belongs to.
type Kind string

const (
	BadRequest      Kind = "BadRequest"
	Unauthenticated Kind = "Unauthenticated"
	Forbidden       Kind = "Forbidden"
	NotFound        Kind = "NotFound"
	UnsupportedUrl  Kind = "UnsupportedUrl"
	FeatureDisabled Kind = "FeatureDisabled"
	UpstreamFailure Kind = "UpstreamFailure"
	Timeout         Kind = "Timeout"
	Internal        Kind = "Internal"
)

var statusByKind = map[Kind]int{
	BadRequest:      http.StatusBadRequest,
	Unauthenticated: http.StatusUnauthorized,
	Forbidden:       http.StatusForbidden,
	NotFound:        http.StatusNotFound,
	UnsupportedUrl:  http.StatusUnprocessableEntity,
	FeatureDisabled: http.StatusServiceUnavailable,
	UpstreamFailure: http.StatusBadGateway,
	Timeout:         http.StatusInternalServerError,
	Internal:        http.StatusInternalServerError,
}

// Error is the typed error carried across package boundaries up to the HTTP
// layer, which is the only place Status and Kind are consulted.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code associated with e's Kind, defaulting
// to 500 for an unrecognized or zero Kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind carrying an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts an *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
