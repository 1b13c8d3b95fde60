package model

import "errors"

// Error kinds shared by the stores, the services and the HTTP layer.
// Callers wrap them with context and match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
	ErrIO         = errors.New("i/o failure")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPendingApproval    = errors.New("your account is pending admin approval")
	ErrForbidden          = errors.New("insufficient permissions")
)

// Kind identifies the category of an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindIO
	KindUnauthorized
	KindForbidden
)

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	case errors.Is(err, ErrPendingApproval), errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindUnknown
	}
}
