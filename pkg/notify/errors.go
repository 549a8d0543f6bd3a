package notify

import "errors"

var (
	// ErrJobStoreNil is returned when a nil job store is provided.
	ErrJobStoreNil = errors.New("job store cannot be nil")

	// ErrPrefStoreNil is returned when a nil preference store is provided.
	ErrPrefStoreNil = errors.New("preference store cannot be nil")

	// ErrMessageDataEmpty is returned when a request carries no payload.
	ErrMessageDataEmpty = errors.New("message data cannot be empty")

	// ErrMessageDataInvalid is returned when the payload is not valid JSON.
	ErrMessageDataInvalid = errors.New("message data must be valid JSON")
)
