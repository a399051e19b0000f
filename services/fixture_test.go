package services

import (
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/sink"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// harness wires the real runtime stores on top of a temporary badger.
type harness struct {
	users       repositories.UserRepository
	rooms       *repositories.RoomRepository
	messages    repositories.MessageRepository
	presence    *runtime.Presence
	registry    *runtime.Registry
	typing      *runtime.TypingTracker
	broadcaster *runtime.Broadcaster
	metrics     *observability.Metrics

	sessions *SessionService
	members  *MembershipService
	typer    *TypingService
	sender   *MessageService
	creator  *ChatCreationCoordinator
	chats    *ChatService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	rooms, err := repositories.NewRoomRepository(db)
	req.NoError(err)
	t.Cleanup(func() {
		_ = rooms.Close()
		_ = db.Close()
	})

	h := &harness{
		users:    repositories.NewUserRepository(db),
		rooms:    rooms,
		messages: repositories.NewMessageRepository(db, log, nil),
		presence: runtime.NewPresence(),
		registry: runtime.NewRegistry(),
		typing:   runtime.NewTypingTracker(),
		metrics:  observability.NewTestMetrics(),
	}
	h.broadcaster = runtime.NewBroadcaster(log, h.registry, h.presence, h.metrics, time.Second)
	h.sessions = NewSessionService(log, h.presence, h.registry, h.typing, h.broadcaster, h.metrics)
	h.members = NewMembershipService(log, h.rooms, h.registry)
	h.typer = NewTypingService(h.typing, h.registry, h.broadcaster)
	h.sender = NewMessageService(log, h.messages, h.rooms, h.users, h.broadcaster, h.metrics)
	h.creator = NewChatCreationCoordinator(log, h.rooms, h.presence, h.registry, h.broadcaster, h.metrics)
	h.chats = NewChatService(h.rooms, h.messages, h.users)
	return h
}

func (h *harness) user(t *testing.T, id domain.UserID, name string) {
	t.Helper()
	_, err := h.users.EnsureUser(domain.User{ID: id, Name: name, Email: string(id) + "@mail.test"})
	require.NoError(t, err)
}

// online connects a session and joins its current rooms.
func (h *harness) online(t *testing.T, id domain.UserID, name string) *sink.Timeline {
	t.Helper()
	s := sink.NewTimeline(id, name)
	h.sessions.Connect(s)
	_, err := h.members.JoinChats(s)
	require.NoError(t, err)
	return s
}

func (h *harness) room(t *testing.T, creator domain.UserID, invitees ...domain.UserID) domain.Room {
	t.Helper()
	room, err := h.rooms.CreateRoom(domain.NewRoom(nil, len(invitees), time.Now()), creator, invitees)
	require.NoError(t, err)
	return room
}
