package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestChatCreation_Trio_With_One_Online_Invitee(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.user(t, "creator", "Creator")
	h.user(t, "a", "A")
	h.user(t, "b", "B")
	creator := h.online(t, "creator", "Creator")
	a := h.online(t, "a", "A")

	// When the creator invites a (online) and b (offline)
	room, err := h.creator.Create(context.Background(), domain.CreateChatCommand{
		CreatorID: "creator", Invitees: []domain.UserID{"a", "b"}, Name: lo.ToPtr("Trio"),
	})

	// Then a group room with three participants is persisted
	req.NoError(err)
	req.True(room.IsGroup)
	participants, err := h.rooms.Participants(room.ID)
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"creator", "a", "b"},
		lo.Map(participants, func(p domain.Participant, _ int) domain.UserID { return p.UserID }))

	// And a received the notice and is subscribed
	notices := a.OfType(event.NewChatCreatedType)
	req.Len(notices, 1)
	notice := notices[0].(event.ChatCreated)
	req.Equal(room.ID, notice.Room)
	req.Equal("Trio", *notice.Name)
	req.True(notice.IsGroup)
	req.True(h.registry.IsSubscribed(a, room.ID))

	// And the creator is subscribed without a notice
	req.Empty(creator.OfType(event.NewChatCreatedType))
	req.True(h.registry.IsSubscribed(creator, room.ID))

	// And b, offline, sees the room on the next snapshot
	b := h.online(t, "b", "B")
	req.True(h.registry.IsSubscribed(b, room.ID))
	req.Equal(1.0, testutil.ToFloat64(h.metrics.RoomsCreated))
}

func TestChatCreation_Invitee_Receives_Messages_Right_Away(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.user(t, "alice", "Alice")
	h.user(t, "bob", "Bob")
	bob := h.online(t, "bob", "Bob")

	room, err := h.creator.Create(context.Background(), domain.CreateChatCommand{CreatorID: "alice", Invitees: []domain.UserID{"bob"}})
	req.NoError(err)
	req.False(room.IsGroup)

	_, err = h.sender.Send(context.Background(), domain.SendMessageCommand{Room: room.ID, SenderID: "alice", SenderName: "Alice", Content: "welcome"})
	req.NoError(err)

	// The notice arrives before the first message
	events := bob.Events()
	req.Len(events, 2)
	req.Equal(event.NewChatCreatedType, events[0].Type())
	req.Equal(event.NewMessageType, events[1].Type())
}

func TestChatCreation_Validation(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice", "Alice")
	h.user(t, "bob", "Bob")

	tests := []struct {
		name     string
		invitees []domain.UserID
		wantErr  error
	}{
		{"No invitees", nil, errors.ErrNoInvitees},
		{"Only the creator", []domain.UserID{"alice", "alice"}, errors.ErrNoInvitees},
		{"Unknown invitee", []domain.UserID{"bob", "ghost"}, errors.ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.creator.Create(context.Background(), domain.CreateChatCommand{CreatorID: "alice", Invitees: tt.invitees})
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, errors.ErrValidation)
		})
	}

	rooms, err := h.rooms.RoomsForUser("alice")
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestChatCreation_Duplicate_Invitees_Make_A_One_To_One(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.user(t, "alice", "Alice")
	h.user(t, "bob", "Bob")

	room, err := h.creator.Create(context.Background(), domain.CreateChatCommand{
		CreatorID: "alice", Invitees: []domain.UserID{"bob", "bob", "alice"},
	})

	req.NoError(err)
	req.False(room.IsGroup)
	participants, err := h.rooms.Participants(room.ID)
	req.NoError(err)
	req.Len(participants, 2)
}

func TestChatCreation_Notification_Failure_Keeps_Room(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.user(t, "alice", "Alice")
	h.user(t, "bob", "Bob")
	bob := h.online(t, "bob", "Bob")
	bob.FailWith(errors.ErrSlowConsumer)

	room, err := h.creator.Create(context.Background(), domain.CreateChatCommand{CreatorID: "alice", Invitees: []domain.UserID{"bob"}})

	req.NoError(err)
	_, err = h.rooms.GetRoom(room.ID)
	req.NoError(err)
	req.Equal(1.0, testutil.ToFloat64(h.metrics.NotificationFailures))
}

// leavingPresence runs leave right after a successful lookup, before the
// caller gets to use the session.
type leavingPresence struct {
	contract.IPresence
	leave func(s contract.Session)
}

func (p leavingPresence) Lookup(userID domain.UserID) (contract.Session, bool) {
	s, ok := p.IPresence.Lookup(userID)
	if ok {
		p.leave(s)
	}
	return s, ok
}

func TestChatCreation_Invitee_Disconnecting_During_Notify_Is_Not_Resubscribed(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.user(t, "alice", "Alice")
	h.user(t, "bob", "Bob")
	bob := h.online(t, "bob", "Bob")

	// Given bob disconnects between the presence lookup and the subscription
	presence := leavingPresence{IPresence: h.presence, leave: func(s contract.Session) {
		if s.UserID() == "bob" {
			h.sessions.Disconnect(context.Background(), s)
		}
	}}
	creator := NewChatCreationCoordinator(logs.GetLoggerFromLevel(slog.LevelDebug),
		h.rooms, presence, h.registry, h.broadcaster, h.metrics)

	// When alice creates a chat with bob
	room, err := creator.Create(context.Background(), domain.CreateChatCommand{
		CreatorID: "alice", Invitees: []domain.UserID{"bob"},
	})

	// Then the room exists but the closed session is not held by the registry
	req.NoError(err)
	req.True(bob.Closed())
	req.False(h.registry.IsSubscribed(bob, room.ID))
	req.Empty(h.registry.RoomsOf(bob))
	req.Empty(h.registry.SessionsForRoom(room.ID))
	req.Empty(bob.OfType(event.NewChatCreatedType))

	// And bob's next session still sees the room
	next := h.online(t, "bob", "Bob")
	req.True(h.registry.IsSubscribed(next, room.ID))
}
