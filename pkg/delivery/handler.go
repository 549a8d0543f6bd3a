package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courierd/courierd/pkg/job"
)

// Handler performs the channel-specific delivery of one job's payload.
// An error return means this attempt failed; whether the job is retried
// or failed permanently is the caller's decision.
type Handler interface {
	Send(ctx context.Context, recipientID int64, data json.RawMessage, jobID int64) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, recipientID int64, data json.RawMessage, jobID int64) error

// Send implements Handler.
func (f HandlerFunc) Send(ctx context.Context, recipientID int64, data json.RawMessage, jobID int64) error {
	return f(ctx, recipientID, data, jobID)
}

// Registry holds the channel-to-handler mapping for a worker. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	handlers map[job.Channel]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[job.Channel]Handler)}
}

// Register binds a handler to a channel, replacing any previous binding.
func (r *Registry) Register(ch job.Channel, h Handler) *Registry {
	r.handlers[ch] = h
	return r
}

// Resolve returns the handler for a channel or ErrNoHandler. A job whose
// channel has no handler cannot succeed on retry, so callers should fail
// it permanently.
func (r *Registry) Resolve(ch job.Channel) (Handler, error) {
	h, ok := r.handlers[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, ch)
	}
	return h, nil
}
