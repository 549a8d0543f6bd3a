package fanout_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/pkg/fanout"
	"github.com/courierd/courierd/pkg/job"
)

// captureSink records frames delivered to a fake connection.
type captureSink struct {
	mu     sync.Mutex
	frames []fanout.Frame
	err    error
}

func (s *captureSink) Send(f fanout.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *captureSink) Frames() []fanout.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fanout.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *captureSink) waitFrames(t *testing.T, n int) []fanout.Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if frames := s.Frames(); len(frames) >= n {
			return frames
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, have %d", n, len(s.Frames()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// sentInAppJob seeds the store with a sent, unread in-app job.
func sentInAppJob(t *testing.T, s *job.MemoryStore, recipient int64, payload string) int64 {
	t.Helper()

	ctx := context.Background()
	id, err := s.CreateJob(ctx, &job.Job{
		RecipientID: recipient,
		Channel:     job.ChannelInApp,
		Type:        "test",
		MessageData: json.RawMessage(payload),
		MaxRetries:  3,
	})
	require.NoError(t, err)

	_, err = s.ClaimBatch(ctx, uuid.New(), 100)
	require.NoError(t, err)
	require.NoError(t, s.MarkSent(ctx, id))
	return id
}

func newRunningHub(t *testing.T, store *job.MemoryStore, bus fanout.Bus) *fanout.Hub {
	t.Helper()

	hub, err := fanout.NewHub(store, bus)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	// Give the hub a moment to subscribe before tests publish.
	time.Sleep(10 * time.Millisecond)
	return hub
}

func TestNewHub(t *testing.T) {
	t.Parallel()

	_, err := fanout.NewHub(nil, fanout.NewMemoryBus(1))
	assert.ErrorIs(t, err, fanout.ErrStoreNil)

	_, err = fanout.NewHub(job.NewMemoryStore(), nil)
	assert.ErrorIs(t, err, fanout.ErrBusNil)
}

func TestHub_LiveDelivery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("delivers to connected recipient and marks read", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		hub := newRunningHub(t, store, bus)

		jobID := sentInAppJob(t, store, 7, `{"title":"hi"}`)
		require.NoError(t, store.MarkRead(ctx, jobID)) // not part of this scenario

		liveID := sentInAppJob(t, store, 7, `{"title":"live"}`)

		sink := &captureSink{}
		detach, err := hub.Attach(ctx, 7, sink)
		require.NoError(t, err)
		defer detach()

		require.NoError(t, bus.Publish(ctx, fanout.Envelope{
			RecipientID: 7,
			JobID:       liveID,
			Data:        json.RawMessage(`{"title":"live"}`),
		}))

		frames := sink.waitFrames(t, 1)
		assert.Equal(t, fanout.FrameNotification, frames[0].Type)
		require.NotNil(t, frames[0].JobID)
		assert.Equal(t, liveID, *frames[0].JobID)
		assert.JSONEq(t, `{"title":"live"}`, string(frames[0].Data))

		// Read-ack follows transmission.
		assert.Eventually(t, func() bool {
			stored, err := store.Get(ctx, liveID)
			return err == nil && stored.IsRead
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("fans out to every connection of the recipient", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		hub := newRunningHub(t, store, bus)

		first := &captureSink{}
		second := &captureSink{}
		other := &captureSink{}

		d1, err := hub.Attach(ctx, 7, first)
		require.NoError(t, err)
		defer d1()
		d2, err := hub.Attach(ctx, 7, second)
		require.NoError(t, err)
		defer d2()
		d3, err := hub.Attach(ctx, 8, other)
		require.NoError(t, err)
		defer d3()

		require.NoError(t, bus.Publish(ctx, fanout.Envelope{
			RecipientID: 7,
			Data:        json.RawMessage(`{"title":"multi"}`),
		}))

		first.waitFrames(t, 1)
		second.waitFrames(t, 1)
		assert.Empty(t, other.Frames(), "other recipients must not receive the frame")
	})

	t.Run("no connections leaves job unread", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		newRunningHub(t, store, bus)

		id := sentInAppJob(t, store, 7, `{"title":"offline"}`)
		require.NoError(t, bus.Publish(ctx, fanout.Envelope{
			RecipientID: 7,
			JobID:       id,
			Data:        json.RawMessage(`{"title":"offline"}`),
		}))

		time.Sleep(50 * time.Millisecond)
		stored, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, stored.IsRead)
	})

	t.Run("failing connection is detached, healthy one still served", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		hub := newRunningHub(t, store, bus)

		slow := &captureSink{err: fanout.ErrSlowConsumer}
		healthy := &captureSink{}

		d1, err := hub.Attach(ctx, 7, slow)
		require.NoError(t, err)
		defer d1()
		d2, err := hub.Attach(ctx, 7, healthy)
		require.NoError(t, err)
		defer d2()

		require.NoError(t, bus.Publish(ctx, fanout.Envelope{
			RecipientID: 7,
			Data:        json.RawMessage(`{"title":"x"}`),
		}))

		healthy.waitFrames(t, 1)
		assert.Eventually(t, func() bool {
			return hub.ConnectionCount(7) == 1
		}, time.Second, 5*time.Millisecond)
	})
}

func TestHub_ReplayMissed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("replays unread jobs oldest first and marks them read", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		hub, err := fanout.NewHub(store, bus)
		require.NoError(t, err)

		first := sentInAppJob(t, store, 7, `{"title":"one"}`)
		second := sentInAppJob(t, store, 7, `{"title":"two"}`)

		sink := &captureSink{}
		detach, err := hub.Attach(ctx, 7, sink)
		require.NoError(t, err)
		defer detach()

		frames := sink.Frames()
		require.Len(t, frames, 2)
		assert.Equal(t, fanout.FrameNotificationMissed, frames[0].Type)
		require.NotNil(t, frames[0].JobID)
		assert.Equal(t, first, *frames[0].JobID)
		require.NotNil(t, frames[1].JobID)
		assert.Equal(t, second, *frames[1].JobID)

		for _, id := range []int64{first, second} {
			stored, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.True(t, stored.IsRead, "job %d must be read after replay", id)
		}
	})

	t.Run("second connect replays nothing", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		hub, err := fanout.NewHub(store, bus)
		require.NoError(t, err)

		sentInAppJob(t, store, 7, `{"title":"once"}`)

		sink := &captureSink{}
		detach, err := hub.Attach(ctx, 7, sink)
		require.NoError(t, err)
		detach()

		again := &captureSink{}
		detach, err = hub.Attach(ctx, 7, again)
		require.NoError(t, err)
		detach()

		assert.Len(t, sink.Frames(), 1)
		assert.Empty(t, again.Frames())
	})

	t.Run("replay failure detaches the connection", func(t *testing.T) {
		t.Parallel()

		store := job.NewMemoryStore()
		bus := fanout.NewMemoryBus(8)
		hub, err := fanout.NewHub(store, bus)
		require.NoError(t, err)

		sentInAppJob(t, store, 7, `{"title":"stuck"}`)

		broken := &captureSink{err: fanout.ErrSlowConsumer}
		_, err = hub.Attach(ctx, 7, broken)
		require.Error(t, err)
		assert.Zero(t, hub.ConnectionCount(7))
	})
}
