package fanout

import (
	"context"
	"encoding/json"
)

// Envelope is the message published by the in-app delivery handler and
// routed by the hub to the recipient's live connections. The worker and
// the hub may run in different processes, so the envelope travels over a
// Bus rather than a direct call.
type Envelope struct {
	RecipientID int64           `json:"recipient_id"`
	JobID       int64           `json:"job_id"`
	Data        json.RawMessage `json:"data"`
}

// Bus is the message-passing transport between delivery handlers and
// hubs. MemoryBus serves single-process setups; RedisBus spans processes.
type Bus interface {
	// Publish sends an envelope to every subscribed hub. Publishing
	// never waits on slow subscribers.
	Publish(ctx context.Context, env Envelope) error

	// Subscribe returns a channel of envelopes. The channel is closed
	// when the context is cancelled or the bus shuts down.
	Subscribe(ctx context.Context) (<-chan Envelope, error)
}
