package fanout

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// TokenVerifier authenticates a connecting client and resolves the
// recipient identity the connection belongs to.
type TokenVerifier interface {
	RecipientID(token string) (int64, error)
}

// Gateway upgrades HTTP requests to WebSocket connections and bridges
// them into the hub. Unauthenticated attempts are rejected at the
// handshake, before the upgrade.
type Gateway struct {
	hub        *Hub
	verifier   TokenVerifier
	logger     *slog.Logger
	sendBuffer int
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithSendBuffer sets the per-connection outbound frame buffer. When a
// client's buffer fills up, the hub detaches that client.
func WithSendBuffer(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.sendBuffer = n
		}
	}
}

// NewGateway creates the WebSocket entry point for live notifications.
func NewGateway(hub *Hub, verifier TokenVerifier, opts ...GatewayOption) (*Gateway, error) {
	if hub == nil {
		return nil, ErrHubNil
	}
	if verifier == nil {
		return nil, ErrVerifierNil
	}

	g := &Gateway{
		hub:        hub,
		verifier:   verifier,
		logger:     slog.Default(),
		sendBuffer: 32,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ServeHTTP implements http.Handler. The connection lives for the
// duration of this call: frames flow out through a dedicated writer
// goroutine while this goroutine drains (and ignores) inbound client
// frames until the peer disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	recipientID, err := g.verifier.RecipientID(token)
	if err != nil {
		g.logger.WarnContext(r.Context(), "rejected unauthenticated connection",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		g.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	c := newWSConn(conn, g.sendBuffer)
	go c.writeLoop()

	detach, err := g.hub.Attach(r.Context(), recipientID, c)
	if err != nil {
		g.logger.ErrorContext(r.Context(), "failed to attach connection",
			slog.Int64("recipient_id", recipientID),
			slog.String("error", err.Error()))
		c.close()
		return
	}
	defer func() {
		detach()
		c.close()
		g.logger.Info("client disconnected",
			slog.Int64("recipient_id", recipientID))
	}()

	// Inbound client frames carry no semantics in the base protocol;
	// this loop exists to detect disconnects and reserves the explicit
	// read-receipt extension.
	for {
		data, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}
		g.logger.Debug("ignoring client frame",
			slog.Int64("recipient_id", recipientID),
			slog.Int("bytes", len(data)))
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if t, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return t
		}
	}
	// Browsers cannot set headers on WebSocket handshakes, so a query
	// parameter is accepted as well.
	return r.URL.Query().Get("token")
}

// wsConn adapts a raw WebSocket connection to the hub's Sink interface.
// Frames are enqueued to a buffered channel and flushed by writeLoop, so
// a stalled client fails fast in Send instead of blocking the hub.
type wsConn struct {
	conn      net.Conn
	out       chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn net.Conn, buffer int) *wsConn {
	return &wsConn{
		conn: conn,
		out:  make(chan Frame, max(buffer, 1)),
		done: make(chan struct{}),
	}
}

// Send implements Sink.
func (c *wsConn) Send(f Frame) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.out <- f:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.out:
			data, err := json.Marshal(f)
			if err != nil {
				continue
			}
			if err := wsutil.WriteServerText(c.conn, data); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
