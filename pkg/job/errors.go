package job

import "errors"

var (
	// ErrJobNil is returned when a nil job is passed to a store.
	ErrJobNil = errors.New("job cannot be nil")

	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a status update targets a job
	// that is not in the expected source state. This is the race guard:
	// a worker that lost its claim observes this instead of overwriting
	// another worker's result.
	ErrInvalidTransition = errors.New("job is not in the expected state for this transition")

	// ErrInvalidChannel is returned for a channel outside the known set.
	ErrInvalidChannel = errors.New("unknown notification channel")
)
