package fanout

import "errors"

var (
	// ErrStoreNil is returned when a nil job store is provided.
	ErrStoreNil = errors.New("fanout: job store cannot be nil")

	// ErrBusNil is returned when a nil bus is provided.
	ErrBusNil = errors.New("fanout: bus cannot be nil")

	// ErrBusClosed is returned on operations against a closed bus.
	ErrBusClosed = errors.New("fanout: bus is closed")

	// ErrHubNil is returned when a nil hub is provided to the gateway.
	ErrHubNil = errors.New("fanout: hub cannot be nil")

	// ErrVerifierNil is returned when the gateway has no token verifier.
	ErrVerifierNil = errors.New("fanout: token verifier cannot be nil")

	// ErrSlowConsumer is reported by a connection whose send buffer is
	// full; the hub detaches such connections instead of blocking on
	// them.
	ErrSlowConsumer = errors.New("fanout: connection cannot keep up")

	// ErrConnClosed is reported when sending on a closed connection.
	ErrConnClosed = errors.New("fanout: connection is closed")
)
