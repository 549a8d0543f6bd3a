package fanout_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/pkg/fanout"
	"github.com/courierd/courierd/pkg/job"
)

// staticVerifier resolves one known token to one recipient.
type staticVerifier struct {
	token     string
	recipient int64
}

func (v staticVerifier) RecipientID(token string) (int64, error) {
	if token != v.token {
		return 0, errors.New("unknown token")
	}
	return v.recipient, nil
}

// wsClient wraps a dialed test connection. ws.Dial may hand back frame
// bytes it over-read during the handshake, so reads go through the
// leftover buffer first.
type wsClient struct {
	conn net.Conn
	rw   io.ReadWriter
}

func dialGateway(t *testing.T, url, token string) *wsClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(url, "http") + "?token=" + token
	conn, br, _, err := ws.Dial(ctx, wsURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &wsClient{conn: conn, rw: conn}
	if br != nil {
		c.rw = struct {
			io.Reader
			io.Writer
		}{io.MultiReader(br, conn), conn}
	}
	return c
}

func (c *wsClient) readFrame(t *testing.T) fanout.Frame {
	t.Helper()

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	data, err := wsutil.ReadServerText(c.rw)
	require.NoError(t, err)

	var f fanout.Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func newTestGateway(t *testing.T, store *job.MemoryStore, bus fanout.Bus) *httptest.Server {
	t.Helper()

	hub := newRunningHub(t, store, bus)
	gw, err := fanout.NewGateway(hub, staticVerifier{token: "good", recipient: 42})
	require.NoError(t, err)

	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewGateway(t *testing.T) {
	t.Parallel()

	hub, err := fanout.NewHub(job.NewMemoryStore(), fanout.NewMemoryBus(1))
	require.NoError(t, err)

	_, err = fanout.NewGateway(nil, staticVerifier{})
	assert.ErrorIs(t, err, fanout.ErrHubNil)

	_, err = fanout.NewGateway(hub, nil)
	assert.ErrorIs(t, err, fanout.ErrVerifierNil)
}

func TestGateway_RejectsBadCredentials(t *testing.T) {
	t.Parallel()

	srv := newTestGateway(t, job.NewMemoryStore(), fanout.NewMemoryBus(4))

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Get(srv.URL + "?token=bogus")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid bearer header", func(t *testing.T) {
		t.Parallel()

		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer bogus")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestGateway_ReplaysMissedOnConnect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := job.NewMemoryStore()
	srv := newTestGateway(t, store, fanout.NewMemoryBus(4))

	jobID := sentInAppJob(t, store, 42, `{"title":"while you were away"}`)

	client := dialGateway(t, srv.URL, "good")
	frame := client.readFrame(t)

	assert.Equal(t, fanout.FrameNotificationMissed, frame.Type)
	require.NotNil(t, frame.JobID)
	assert.Equal(t, jobID, *frame.JobID)
	assert.JSONEq(t, `{"title":"while you were away"}`, string(frame.Data))

	stored, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
}

func TestGateway_StreamsLiveNotifications(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := job.NewMemoryStore()
	bus := fanout.NewMemoryBus(4)
	srv := newTestGateway(t, store, bus)

	client := dialGateway(t, srv.URL, "good")

	jobID := sentInAppJob(t, store, 42, `{"title":"fresh"}`)
	require.NoError(t, bus.Publish(ctx, fanout.Envelope{
		RecipientID: 42,
		JobID:       jobID,
		Data:        json.RawMessage(`{"title":"fresh"}`),
	}))

	frame := client.readFrame(t)
	assert.Equal(t, fanout.FrameNotification, frame.Type)
	require.NotNil(t, frame.JobID)
	assert.Equal(t, jobID, *frame.JobID)

	assert.Eventually(t, func() bool {
		stored, err := store.Get(ctx, jobID)
		return err == nil && stored.IsRead
	}, time.Second, 5*time.Millisecond)
}
