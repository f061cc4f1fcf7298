package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// History errors. Callers match them with errors.Is; ErrorInternal is
	// usually wrapped with a description of the inconsistency.
	ErrorInvalidTarget = errors.New("invalid target")
	ErrorInternal      = errors.New("internal error")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrForbiddenRole  = errors.New("role not allowed")

	// Transport errors.
	ErrMessageTooLarge = errors.New("message too large")
	ErrChannelClosed   = errors.New("channel closed")
)
