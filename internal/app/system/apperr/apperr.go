// Package apperr is the error taxonomy shared by stores, services and handlers.
//
// Errors are waffle *Error values carrying a caller-safe message, a code and
// an HTTP status. The kind sentinels below sit in the cause chain so stores
// and handlers can branch with errors.Is. Handlers never echo the text of an
// unclassified error to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	werrors "github.com/dalemusser/waffle/pantry/errors"
)

// Kinds.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamData        = errors.New("upstream data error")
	ErrRateLimited         = errors.New("rate limited")
)

// Error is waffle's structured error: Code, Message, Status and the cause.
type Error = werrors.Error

type kindSpec struct {
	kind  error
	build func(string) *werrors.Error
	code  string
}

var kinds = []kindSpec{
	{ErrNotFound, werrors.NotFound, werrors.CodeNotFound},
	{ErrConflict, werrors.Conflict, werrors.CodeConflict},
	{ErrValidation, werrors.BadRequest, "validation_error"},
	{ErrUnauthorized, werrors.Unauthorized, werrors.CodeUnauthorized},
	{ErrForbidden, werrors.Forbidden, werrors.CodeForbidden},
	{ErrUpstreamUnavailable, werrors.ServiceUnavailable, "upstream_unavailable"},
	{ErrUpstreamData, werrors.UnprocessableEntity, "upstream_data_error"},
	{ErrRateLimited, werrors.TooManyRequests, "rate_limited"},
}

func lookup(kind error) (kindSpec, bool) {
	for _, k := range kinds {
		if k.kind == kind {
			return k, true
		}
	}
	return kindSpec{}, false
}

func newf(kind error, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	k, ok := lookup(kind)
	if !ok {
		return werrors.Internal(msg).Wrap(errors.Join(kind, cause))
	}
	e := k.build(msg)
	e.Code = k.code
	if cause != nil {
		return e.Wrap(errors.Join(kind, cause))
	}
	return e.Wrap(kind)
}

func NotFound(format string, args ...any) *Error     { return newf(ErrNotFound, nil, format, args...) }
func Conflict(format string, args ...any) *Error     { return newf(ErrConflict, nil, format, args...) }
func Validation(format string, args ...any) *Error   { return newf(ErrValidation, nil, format, args...) }
func Unauthorized(format string, args ...any) *Error { return newf(ErrUnauthorized, nil, format, args...) }
func Forbidden(format string, args ...any) *Error    { return newf(ErrForbidden, nil, format, args...) }
func RateLimited(format string, args ...any) *Error  { return newf(ErrRateLimited, nil, format, args...) }

// Upstream wraps cause as an upstream failure of the given kind.
func Upstream(kind error, cause error, format string, args ...any) *Error {
	return newf(kind, cause, format, args...)
}

// WithCode replaces the machine-readable code on e.
func WithCode(e *Error, code string) *Error {
	e.Code = code
	return e
}

// Status maps err to its HTTP status. Bare kind sentinels map the same way
// as the constructed errors.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.build("").HTTPStatus()
		}
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code for err.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.code
		}
	}
	return werrors.CodeInternalError
}

// Message returns the caller-facing message for err. Unclassified errors
// get a generic message.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
