package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// State is the lifecycle position of a connection.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one authenticated websocket. Outbound events go through a
// bounded buffer drained by the write pump; a peer too slow to drain it is
// disconnected instead of stalling the broadcaster.
type Connection struct {
	id       string
	identity auth.Identity
	conn     *websocket.Conn
	cfg      Config
	log      *slog.Logger
	limiter  *rate.Limiter

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	state State
}

func newConnection(log *slog.Logger, conn *websocket.Conn, identity auth.Identity, cfg Config) *Connection {
	conn.SetReadLimit(cfg.MaxFrameBytes)
	id := uuid.NewString()
	return &Connection{
		id:       id,
		identity: identity,
		conn:     conn,
		cfg:      cfg,
		log:      log.With("session_id", id, "user_id", identity.UserID),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		send:     make(chan []byte, cfg.SendBufferSize),
		closed:   make(chan struct{}),
		state:    StateAuthenticated,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) UserID() domain.UserID { return c.identity.UserID }

func (c *Connection) UserName() string { return c.identity.UserName }

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition moves forward only; a closed connection stays closed.
func (c *Connection) transition(to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed || to < c.state {
		return false
	}
	c.state = to
	return true
}

// Consume encodes the event and queues it for the write pump.
func (c *Connection) Consume(ctx context.Context, e event.DomainEvent) error {
	payload, err := json.Marshal(event.Wrap(e))
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return errors.ErrSessionClosed
	default:
		c.log.Warn("Send buffer full, closing connection", "buffer", cap(c.send))
		c.Close()
		return errors.ErrSlowConsumer
	}
}

func (c *Connection) Closed() bool {
	return c.State() == StateClosed
}

// Close is idempotent. The write pump notices and sends a close frame.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.closed)
	})
}

// readPump reads frames until the peer leaves or the connection is closed,
// handing each one to handle. Frames are handled one at a time.
func (c *Connection) readPump(handle func(raw []byte)) {
	defer c.Close()

	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		handle(raw)
		select {
		case <-c.closed:
			return
		default:
		}
	}
}

func (c *Connection) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Info("Frame exceeded maximum size", "max_bytes", c.cfg.MaxFrameBytes)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF):
		c.log.Debug("Client disconnected")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.log.Warn("Unexpected websocket close", "error", err)
	default:
		c.log.Debug("Websocket read ended", "error", err)
	}
}

// writePump owns every write on the socket, including pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if !c.write(websocket.TextMessage, payload) {
				c.Close()
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				c.Close()
				return
			}
		case <-c.closed:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes what is already queued so an error frame sent right before
// closing still reaches the peer.
func (c *Connection) flush() {
	for {
		select {
		case payload := <-c.send:
			if !c.write(websocket.TextMessage, payload) {
				return
			}
		default:
			return
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		c.log.Debug("Error setting write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		c.log.Debug("Error writing to websocket", "error", err)
		return false
	}
	return true
}
