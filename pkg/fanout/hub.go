package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/courierd/courierd/pkg/job"
)

// Sink is one live client connection from the hub's point of view.
type Sink interface {
	// Send enqueues a frame for transmission to the client. It must not
	// block: implementations report an error when the client cannot keep
	// up, and the hub detaches them.
	Send(f Frame) error
}

// Hub maintains the mapping from recipient id to that recipient's live
// connections. A recipient may hold zero, one or many connections at
// once (multiple devices); group-send fans an envelope out to all of
// them. The hub also replays sent-but-unread in-app jobs when a client
// attaches, closing the gap left by the bus's lack of durability.
type Hub struct {
	store  job.FanoutStore
	bus    Bus
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[int64]map[Sink]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a hub over the given store and bus.
func NewHub(store job.FanoutStore, bus Bus, opts ...HubOption) (*Hub, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if bus == nil {
		return nil, ErrBusNil
	}

	h := &Hub{
		store:  store,
		bus:    bus,
		logger: slog.Default(),
		conns:  make(map[int64]map[Sink]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Run subscribes to the bus and dispatches envelopes until ctx is
// cancelled or the bus shuts down.
func (h *Hub) Run(ctx context.Context) error {
	envs, err := h.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("hub subscribe: %w", err)
	}

	h.logger.InfoContext(ctx, "fanout hub running")

	for env := range envs {
		h.dispatch(ctx, env)
	}
	return nil
}

// Attach registers a connection under the recipient's group and replays
// any sent-but-unread in-app jobs to it, oldest first, marking each as
// read after transmission. The returned detach function removes the
// connection; it is safe to call more than once.
func (h *Hub) Attach(ctx context.Context, recipientID int64, s Sink) (func(), error) {
	h.mu.Lock()
	group, ok := h.conns[recipientID]
	if !ok {
		group = make(map[Sink]struct{})
		h.conns[recipientID] = group
	}
	group[s] = struct{}{}
	h.mu.Unlock()

	detach := func() { h.detach(recipientID, s) }

	if err := h.replayMissed(ctx, recipientID, s); err != nil {
		detach()
		return nil, err
	}

	h.logger.InfoContext(ctx, "client attached",
		slog.Int64("recipient_id", recipientID))

	return detach, nil
}

// ConnectionCount returns the number of live connections for a
// recipient.
func (h *Hub) ConnectionCount(recipientID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[recipientID])
}

// replayMissed pushes notifications the worker sent while the client was
// offline. Each job is marked read right after transmission so it is not
// replayed again on the next reconnect; re-marking is idempotent.
func (h *Hub) replayMissed(ctx context.Context, recipientID int64, s Sink) error {
	missed, err := h.store.ListUnread(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("list missed notifications for recipient %d: %w", recipientID, err)
	}
	if len(missed) == 0 {
		return nil
	}

	h.logger.InfoContext(ctx, "replaying missed notifications",
		slog.Int64("recipient_id", recipientID),
		slog.Int("count", len(missed)))

	for _, j := range missed {
		if err := s.Send(missedFrame(j)); err != nil {
			return fmt.Errorf("replay job %d: %w", j.ID, err)
		}
		if err := h.store.MarkRead(ctx, j.ID); err != nil {
			h.logger.ErrorContext(ctx, "failed to mark replayed job read",
				slog.Int64("job_id", j.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// dispatch delivers an envelope to every live connection of its
// recipient. Connections that cannot accept the frame are detached so a
// slow client never stalls the rest of the group. The job is marked read
// only if at least one connection accepted the frame.
func (h *Hub) dispatch(ctx context.Context, env Envelope) {
	h.mu.RLock()
	sinks := make([]Sink, 0, len(h.conns[env.RecipientID]))
	for s := range h.conns[env.RecipientID] {
		sinks = append(sinks, s)
	}
	h.mu.RUnlock()

	if len(sinks) == 0 {
		// Nobody connected: the job stays unread and is replayed on the
		// recipient's next connect.
		return
	}

	frame := liveFrame(env)
	delivered := false
	for _, s := range sinks {
		if err := s.Send(frame); err != nil {
			h.logger.WarnContext(ctx, "detaching unresponsive connection",
				slog.Int64("recipient_id", env.RecipientID),
				slog.String("error", err.Error()))
			h.detach(env.RecipientID, s)
			continue
		}
		delivered = true
	}

	if delivered && env.JobID != 0 {
		if err := h.store.MarkRead(ctx, env.JobID); err != nil {
			h.logger.ErrorContext(ctx, "failed to mark delivered job read",
				slog.Int64("job_id", env.JobID),
				slog.String("error", err.Error()))
		}
	}
}

func (h *Hub) detach(recipientID int64, s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if group, ok := h.conns[recipientID]; ok {
		delete(group, s)
		if len(group) == 0 {
			delete(h.conns, recipientID)
		}
	}
}
