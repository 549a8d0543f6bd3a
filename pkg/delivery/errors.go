package delivery

import "errors"

// Package-level errors.
var (
	ErrNoHandler       = errors.New("no handler registered for channel")
	ErrSenderNil       = errors.New("email sender cannot be nil")
	ErrResolverNil     = errors.New("contact resolver cannot be nil")
	ErrBusNotSet       = errors.New("fanout bus not configured")
	ErrRecipientNoAddr = errors.New("recipient has no email address")
)
