package source

import "errors"

var (
	// ErrTransient covers network failures, timeouts and non-2xx responses that survived
	// the client's retry budget.
	ErrTransient = errors.New("remote source unavailable")

	ErrUnauthorized = errors.New("remote source rejected credentials")
	ErrBadPayload   = errors.New("remote source returned an unexpected payload")
)
