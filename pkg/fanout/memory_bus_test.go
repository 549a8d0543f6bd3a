package fanout_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/pkg/fanout"
)

func TestMemoryBus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("delivers to all subscribers", func(t *testing.T) {
		t.Parallel()

		bus := fanout.NewMemoryBus(4)
		defer bus.Close()

		first, err := bus.Subscribe(ctx)
		require.NoError(t, err)
		second, err := bus.Subscribe(ctx)
		require.NoError(t, err)

		env := fanout.Envelope{RecipientID: 1, JobID: 2, Data: json.RawMessage(`{"k":"v"}`)}
		require.NoError(t, bus.Publish(ctx, env))

		for _, sub := range []<-chan fanout.Envelope{first, second} {
			select {
			case got := <-sub:
				assert.Equal(t, env, got)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for envelope")
			}
		}
	})

	t.Run("publish does not block on a full subscriber", func(t *testing.T) {
		t.Parallel()

		bus := fanout.NewMemoryBus(1)
		defer bus.Close()

		sub, err := bus.Subscribe(ctx)
		require.NoError(t, err)

		// Second publish overflows the buffer and must be dropped, not
		// block.
		require.NoError(t, bus.Publish(ctx, fanout.Envelope{JobID: 1}))
		require.NoError(t, bus.Publish(ctx, fanout.Envelope{JobID: 2}))

		got := <-sub
		assert.Equal(t, int64(1), got.JobID)
		select {
		case env := <-sub:
			t.Fatalf("unexpected envelope %+v", env)
		default:
		}
	})

	t.Run("context cancellation removes the subscription", func(t *testing.T) {
		t.Parallel()

		bus := fanout.NewMemoryBus(1)
		defer bus.Close()

		subCtx, cancel := context.WithCancel(ctx)
		sub, err := bus.Subscribe(subCtx)
		require.NoError(t, err)

		cancel()

		assert.Eventually(t, func() bool {
			select {
			case _, ok := <-sub:
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond, "channel must be closed after cancel")
	})

	t.Run("close rejects further use", func(t *testing.T) {
		t.Parallel()

		bus := fanout.NewMemoryBus(1)
		sub, err := bus.Subscribe(ctx)
		require.NoError(t, err)

		require.NoError(t, bus.Close())
		require.NoError(t, bus.Close()) // idempotent

		_, ok := <-sub
		assert.False(t, ok, "subscriber channel must be closed")

		assert.ErrorIs(t, bus.Publish(ctx, fanout.Envelope{}), fanout.ErrBusClosed)
		_, err = bus.Subscribe(ctx)
		assert.ErrorIs(t, err, fanout.ErrBusClosed)
	})
}
