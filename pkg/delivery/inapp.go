package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courierd/courierd/pkg/fanout"
)

// InAppHandler publishes a job's payload to the fanout bus so live
// clients receive it immediately. Publishing succeeds even when nobody
// is connected: durability comes from the job row, which stays unread
// until a client actually receives the frame.
type InAppHandler struct {
	bus fanout.Bus
}

// NewInAppHandler creates the in-app channel handler.
func NewInAppHandler(bus fanout.Bus) (*InAppHandler, error) {
	if bus == nil {
		return nil, ErrBusNotSet
	}
	return &InAppHandler{bus: bus}, nil
}

// Send implements Handler.
func (h *InAppHandler) Send(ctx context.Context, recipientID int64, data json.RawMessage, jobID int64) error {
	env := fanout.Envelope{
		RecipientID: recipientID,
		JobID:       jobID,
		Data:        data,
	}
	if err := h.bus.Publish(ctx, env); err != nil {
		return fmt.Errorf("publish in-app notification for job %d: %w", jobID, err)
	}
	return nil
}
