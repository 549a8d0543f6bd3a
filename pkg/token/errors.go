package token

import "errors"

// Package-level errors.
var (
	ErrMissingSecret  = errors.New("signing secret cannot be empty")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("token subject is not a recipient id")
)
