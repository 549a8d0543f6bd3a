package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel envelopes travel on.
const DefaultRedisChannel = "courierd:notifications"

// RedisBus is a Bus backed by Redis pub/sub, used when the worker and
// the realtime gateway run as separate processes. Redis pub/sub is
// fire-and-forget, which matches the Bus contract: missed envelopes are
// covered by the reconnect replay, not by the transport.
type RedisBus struct {
	rdb        *redis.Client
	channel    string
	bufferSize int
	logger     *slog.Logger
}

// RedisBusOption configures a RedisBus.
type RedisBusOption func(*RedisBus)

// WithRedisChannel overrides the pub/sub channel name.
func WithRedisChannel(name string) RedisBusOption {
	return func(b *RedisBus) {
		if name != "" {
			b.channel = name
		}
	}
}

// WithRedisBusBuffer sets the subscriber channel buffer.
func WithRedisBusBuffer(n int) RedisBusOption {
	return func(b *RedisBus) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithRedisBusLogger sets the logger.
func WithRedisBusLogger(logger *slog.Logger) RedisBusOption {
	return func(b *RedisBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewRedisBus creates a Redis-backed bus over an established client.
func NewRedisBus(rdb *redis.Client, opts ...RedisBusOption) (*RedisBus, error) {
	if rdb == nil {
		return nil, ErrBusNil
	}

	b := &RedisBus{
		rdb:        rdb,
		channel:    DefaultRedisChannel,
		bufferSize: 64,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Publish implements Bus.
func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe implements Bus. The underlying pub/sub subscription is
// confirmed before returning, so a hub that got a channel back is
// guaranteed to be receiving.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	out := make(chan Envelope, b.bufferSize)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.logger.Warn("dropping malformed envelope",
						slog.String("channel", b.channel),
						slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
