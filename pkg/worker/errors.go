package worker

import "errors"

// Package-level errors.
var (
	ErrStoreNil    = errors.New("worker store cannot be nil")
	ErrHandlersNil = errors.New("handler registry cannot be nil")
)
