// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Error kinds. Every failure surfaced to a client unwraps to exactly one
	// of these; the transport maps them to a status code.
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("already exists")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorNotFound     = errors.New("not found")
	ErrorInternal     = errors.New("internal error")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	ErrRefreshTokenReused  = errors.New("refresh token is expired or used")

	// Upload errors.
	ErrUploadFailed = errors.New("upload failed")
)

// Error is a domain failure tagged with a kind (one of the sentinels above),
// an optional underlying cause and a client-facing message.
type Error struct {
	Kind    error
	Cause   error
	Message string
}

// NewError builds an Error of the given kind with a client-facing message.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an Error of the given kind that also carries cause.
func WrapError(kind, cause error, message string) *Error {
	return &Error{Kind: kind, Cause: cause, Message: message}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
