// Package ws serves the realtime endpoint: it authenticates the handshake,
// upgrades to a websocket and translates frames into service calls.
package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Handler is the http.Handler mounted on the websocket route.
type Handler struct {
	log           *slog.Logger
	cfg           Config
	authenticator auth.IAuthenticator
	sessions      services.ISessionService
	members       services.IMembershipService
	typer         services.ITypingService
	sender        services.IMessageService
	metrics       *observability.Metrics
	upgrader      websocket.Upgrader

	mu      sync.Mutex
	conns   map[string]*Connection
	wg      sync.WaitGroup
	closing bool
}

func NewHandler(
	log *slog.Logger,
	cfg Config,
	authenticator auth.IAuthenticator,
	sessions services.ISessionService,
	members services.IMembershipService,
	typer services.ITypingService,
	sender services.IMessageService,
	metrics *observability.Metrics,
) *Handler {
	policy := newOriginPolicy(cfg.AllowedOrigins)
	h := &Handler{
		log:           log,
		cfg:           cfg,
		authenticator: authenticator,
		sessions:      sessions,
		members:       members,
		typer:         typer,
		sender:        sender,
		metrics:       metrics,
		conns:         make(map[string]*Connection),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if policy.check(r) {
				return true
			}
			log.Warn("Blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
			return false
		},
	}
	return h
}

// ServeHTTP authenticates before upgrading: a bad credential gets a plain
// HTTP error and no session is ever created. The token is read from the
// Authorization header or, for browsers, from the token query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.admit() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	bearer := r.Header.Get("Authorization")
	if bearer == "" {
		bearer = r.URL.Query().Get("token")
	}
	identity, err := h.authenticator.Authenticate(r.Context(), bearer)
	if err != nil {
		h.metrics.RejectedEvents.WithLabelValues("unauthenticated").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(errors.MapToHTTPStatus(err))
		_ = json.NewEncoder(w).Encode(map[string]string{"error": errors.PublicMessage(err)})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("Websocket upgrade failed", "user_id", identity.UserID, "error", err)
		return
	}

	c := newConnection(h.log, conn, identity, h.cfg)
	if !h.track(c) {
		_ = conn.Close()
		return
	}
	defer h.untrack(c)

	if superseded := h.sessions.Connect(c); superseded != nil {
		h.log.Info("Connection superseded by a newer one",
			"user_id", identity.UserID,
			"session_id", c.ID(),
			"superseded_id", superseded.ID())
	}

	go c.writePump()
	c.readPump(func(raw []byte) { h.dispatch(c, raw) })

	h.sessions.Disconnect(context.Background(), c)
}

// dispatch handles one inbound frame. Failures are reported to the origin
// connection only.
func (h *Handler) dispatch(c *Connection, raw []byte) {
	ctx := context.Background()
	if !c.limiter.Allow() {
		h.reject(ctx, c, errors.ErrRateLimited)
		return
	}

	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.reject(ctx, c, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}

	var err error
	switch in.Event {
	case JoinChats:
		err = h.joinChats(ctx, c)
	case TypingStart, TypingStop:
		err = h.typing(ctx, c, in)
	case SendMessage:
		err = h.sendMessage(ctx, c, in.Data)
	default:
		err = fmt.Errorf("%w: %q", errors.ErrUnknownEvent, in.Event)
	}
	if err != nil {
		h.reject(ctx, c, err)
	}
}

func (h *Handler) joinChats(ctx context.Context, c *Connection) error {
	rooms, err := h.members.JoinChats(c)
	if err != nil {
		return err
	}
	c.transition(StateSubscribed)
	return c.Consume(ctx, event.NewChatsJoined(rooms))
}

func (h *Handler) typing(ctx context.Context, c *Connection, in inbound) error {
	var p typingPayload
	if err := decode(in.Data, &p); err != nil {
		return err
	}
	if err := auth.ValidateStruct(p); err != nil {
		return err
	}
	if in.Event == TypingStart {
		return h.typer.StartTyping(ctx, c, domain.RoomID(p.RoomID))
	}
	return h.typer.StopTyping(ctx, c, domain.RoomID(p.RoomID))
}

// sendMessage needs no ack: the sender gets the stored message back through
// the room broadcast like every other subscriber.
func (h *Handler) sendMessage(ctx context.Context, c *Connection, data json.RawMessage) error {
	var p sendMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if err := auth.ValidateStruct(p); err != nil {
		return err
	}
	_, err := h.sender.Send(ctx, p.toCommand(c))
	return err
}

func (h *Handler) reject(ctx context.Context, c *Connection, err error) {
	reason := rejectReason(err)
	h.metrics.RejectedEvents.WithLabelValues(reason).Inc()
	c.log.Debug("Inbound event rejected", "reason", reason, "error", err)
	if errors.Is(err, errors.ErrSlowConsumer) || errors.Is(err, errors.ErrSessionClosed) {
		return
	}
	_ = c.Consume(ctx, event.Failure{Message: errors.PublicMessage(err)})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errors.ErrAuthorization):
		return "forbidden"
	case errors.Is(err, errors.ErrValidation):
		return "invalid"
	case errors.Is(err, errors.ErrStorage):
		return "storage"
	case errors.Is(err, errors.ErrNotification):
		return "closed"
	default:
		return "internal"
	}
}

// admit counts the request for Shutdown to wait on, unless Shutdown
// already began.
func (h *Handler) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.wg.Add(1)
	return true
}

// track refuses connections upgraded after Shutdown collected the live ones.
func (h *Handler) track(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[c.ID()] = c
	return true
}

func (h *Handler) untrack(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c.ID())
}

// Shutdown refuses new handshakes, closes every live connection and waits
// until each one went through its disconnect cleanup, or ctx ends.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	for _, c := range h.conns {
		c.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
