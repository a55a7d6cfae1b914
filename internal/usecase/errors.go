package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAdminDisabled         = errors.New("admin endpoints disabled")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
