package config

import "errors"

// Package-level errors, comparable with errors.Is.
var (
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	ErrLoadingEnv    = errors.New("failed to load env file")
	ErrNilPointer    = errors.New("nil pointer provided to config loader")
)
