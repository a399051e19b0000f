package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://chat.test"

type fixture struct {
	server  *httptest.Server
	handler *Handler
	tokens  *auth.TokenManager
	users   repositories.UserRepository
	rooms   *repositories.RoomRepository
	metrics *observability.Metrics
}

func newFixture(t *testing.T, customize func(cfg *Config)) *fixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	rooms, err := repositories.NewRoomRepository(db)
	req.NoError(err)

	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	presence := runtime.NewPresence()
	registry := runtime.NewRegistry()
	typing := runtime.NewTypingTracker()
	metrics := observability.NewTestMetrics()
	broadcaster := runtime.NewBroadcaster(log, registry, presence, metrics, time.Second)
	tokens := auth.NewTokenManager("secret", "chat-relay", time.Hour)

	cfg := Config{
		SendBufferSize: 16,
		WriteTimeout:   time.Second,
		PongTimeout:    5 * time.Second,
		MaxFrameBytes:  4096,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		AllowedOrigins: []string{testOrigin},
	}
	if customize != nil {
		customize(&cfg)
	}

	handler := NewHandler(log, cfg,
		auth.NewAuthenticator(log, tokens, users),
		services.NewSessionService(log, presence, registry, typing, broadcaster, metrics),
		services.NewMembershipService(log, rooms, registry),
		services.NewTypingService(typing, registry, broadcaster),
		services.NewMessageService(log, messages, rooms, users, broadcaster, metrics),
		metrics,
	)
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = handler.Shutdown(ctx)
		server.Close()
		_ = rooms.Close()
		_ = db.Close()
	})

	return &fixture{server: server, handler: handler, tokens: tokens, users: users, rooms: rooms, metrics: metrics}
}

func (f *fixture) user(t *testing.T, id domain.UserID, name string) {
	t.Helper()
	_, err := f.users.EnsureUser(domain.User{ID: id, Name: name, Email: string(id) + "@mail.test"})
	require.NoError(t, err)
}

func (f *fixture) room(t *testing.T, creator domain.UserID, invitees ...domain.UserID) domain.Room {
	t.Helper()
	room, err := f.rooms.CreateRoom(domain.NewRoom(nil, len(invitees), time.Now()), creator, invitees)
	require.NoError(t, err)
	return room
}

func (f *fixture) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fixture) dial(t *testing.T, userID domain.UserID) *websocket.Conn {
	t.Helper()
	token, err := f.tokens.GenerateToken(userID)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Origin", testOrigin)
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(f.url(), header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// join dials and waits for the join-chats acknowledgement.
func (f *fixture) join(t *testing.T, userID domain.UserID) *websocket.Conn {
	t.Helper()
	conn := f.dial(t, userID)
	send(t, conn, JoinChats, nil)
	expect(t, conn, event.ChatsJoinedType)
	return conn
}

type frame struct {
	Event event.Type      `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, name string, data any) {
	t.Helper()
	msg := map[string]any{"event": name}
	if data != nil {
		msg["data"] = data
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func expect(t *testing.T, conn *websocket.Conn, typ event.Type) frame {
	t.Helper()
	f := read(t, conn)
	require.Equal(t, typ, f.Event, "payload: %s", string(f.Data))
	return f
}

func expectNothing(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHandler_Rejects_Before_Upgrade(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")

	tests := []struct {
		name       string
		header     http.Header
		url        string
		wantStatus int
	}{
		{
			name:       "Missing token",
			header:     http.Header{"Origin": {testOrigin}},
			url:        f.url(),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Invalid token",
			header:     http.Header{"Origin": {testOrigin}, "Authorization": {"Bearer nope"}},
			url:        f.url(),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Disallowed origin",
			header:     http.Header{"Origin": {"http://evil.test"}},
			url:        f.url() + "?token=" + mustToken(t, f, "alice"),
			wantStatus: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tt.url, tt.header)
			require.Error(t, err)
			require.NotNil(t, resp)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RejectedEvents.WithLabelValues("unauthenticated")))
	require.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveConnections))
}

func TestHandler_Token_In_Query(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")

	conn, _, err := websocket.DefaultDialer.Dial(f.url()+"?token="+mustToken(t, f, "alice"), http.Header{"Origin": {testOrigin}})
	require.NoError(t, err)
	defer conn.Close()

	send(t, conn, JoinChats, nil)
	expect(t, conn, event.ChatsJoinedType)
}

func TestHandler_Message_Round_Trip(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")
	f.user(t, "bob", "Bob")
	room := f.room(t, "alice", "bob")

	alice := f.join(t, "alice")
	bob := f.join(t, "bob")

	// When alice posts
	send(t, alice, SendMessage, map[string]any{"roomId": room.ID.String(), "content": "hello"})

	// Then both receive the stored message, the sender through the echo path
	for _, conn := range []*websocket.Conn{alice, bob} {
		posted := expect(t, conn, event.NewMessageType)
		var msg event.MessagePosted
		req.NoError(json.Unmarshal(posted.Data, &msg))
		req.Equal("hello", msg.Content)
		req.Equal(room.ID, msg.Room)
		req.Equal(domain.UserID("alice"), msg.SenderID)
		req.Equal("Alice", msg.SenderName)
	}
}

func TestHandler_Typing_Reaches_Others_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")
	f.user(t, "bob", "Bob")
	room := f.room(t, "alice", "bob")

	alice := f.join(t, "alice")
	bob := f.join(t, "bob")

	// A numeric room id is accepted too
	send(t, bob, TypingStart, map[string]any{"roomId": uint64(room.ID)})

	typing := expect(t, alice, event.UserTypingType)
	var payload event.UserTyping
	req.NoError(json.Unmarshal(typing.Data, &payload))
	req.Equal(domain.UserID("bob"), payload.UserID)
	req.Equal("Bob", payload.UserName)
	expectNothing(t, bob)

	// When bob drops while typing, alice sees him stop
	req.NoError(bob.Close())
	expect(t, alice, event.UserStoppedTypingType)
}

func TestHandler_Errors_Go_To_Origin_Only(t *testing.T) {
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")
	f.user(t, "bob", "Bob")
	f.user(t, "mallory", "Mallory")
	room := f.room(t, "alice", "bob")

	alice := f.join(t, "alice")
	mallory := f.join(t, "mallory")

	tests := []struct {
		name    string
		event   string
		data    any
		message string
	}{
		{"Unknown event", "dance", nil, "unknown event"},
		{"Empty content", SendMessage, map[string]any{"roomId": room.ID.String(), "content": "  "}, "message content is empty"},
		{"Missing data", SendMessage, nil, "invalid payload"},
		{"Not a participant", SendMessage, map[string]any{"roomId": room.ID.String(), "content": "hi"}, "not a participant"},
		{"Typing outside subscriptions", TypingStart, map[string]any{"roomId": room.ID.String()}, "not subscribed"},
		{"Bad room id", TypingStart, map[string]any{"roomId": "zero"}, "invalid payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, mallory, tt.event, tt.data)
			failure := expect(t, mallory, event.ErrorType)
			var payload event.Failure
			require.NoError(t, json.Unmarshal(failure.Data, &payload))
			require.Contains(t, payload.Message, tt.message)
		})
	}
	expectNothing(t, alice)
}

func TestHandler_Rate_Limit(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1
	})
	f.user(t, "alice", "Alice")

	conn := f.join(t, "alice")
	send(t, conn, JoinChats, nil)

	failure := expect(t, conn, event.ErrorType)
	require.Contains(t, string(failure.Data), "rate limit exceeded")
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RejectedEvents.WithLabelValues("rate_limited")))
}

func TestHandler_Oversized_Frame_Closes_Connection(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.MaxFrameBytes = 64 })
	f.user(t, "alice", "Alice")

	conn := f.dial(t, "alice")
	send(t, conn, SendMessage, map[string]any{"roomId": "1", "content": strings.Repeat("x", 256)})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHandler_Shutdown_Closes_Connections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")
	conn := f.join(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(f.handler.Shutdown(ctx))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))
	req.Equal(0.0, testutil.ToFloat64(f.metrics.ActiveConnections))
}

func TestHandler_Refuses_Handshake_After_Shutdown(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.user(t, "alice", "Alice")

	// Given a handler that was shut down
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(f.handler.Shutdown(ctx))

	// When a client still dials
	header := http.Header{"Origin": {testOrigin}, "Authorization": {"Bearer " + mustToken(t, f, "alice")}}
	_, resp, err := websocket.DefaultDialer.Dial(f.url(), header)

	// Then the handshake is refused before any session exists
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.NotNil(resp)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	req.Equal(0.0, testutil.ToFloat64(f.metrics.ActiveConnections))

	// And a second shutdown has nothing left to wait for
	req.NoError(f.handler.Shutdown(ctx))
}

func mustToken(t *testing.T, f *fixture, userID domain.UserID) string {
	t.Helper()
	token, err := f.tokens.GenerateToken(userID)
	require.NoError(t, err)
	return token
}
