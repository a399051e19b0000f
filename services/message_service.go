package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageService interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(requester domain.UserID, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error)
}

// MessageService persists messages and fans them out.
//
// Sends to one room are serialized: persist then broadcast happen under a
// per-room lock, so every subscriber observes the room in storage order.
// Timestamps are strictly increasing within a room even if the wall clock
// steps back.
type MessageService struct {
	log         *slog.Logger
	messages    repositories.IMessageRepository
	rooms       repositories.IRoomRepository
	users       repositories.IUserRepository
	broadcaster contract.IBroadcaster
	metrics     *observability.Metrics
	now         func() time.Time

	mu     sync.Mutex
	states map[domain.RoomID]*roomState
}

type roomState struct {
	mu     sync.Mutex
	loaded bool
	last   time.Time
}

func NewMessageService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	rooms repositories.IRoomRepository,
	users repositories.IUserRepository,
	broadcaster contract.IBroadcaster,
	metrics *observability.Metrics,
) *MessageService {
	return &MessageService{
		log:         log,
		messages:    messages,
		rooms:       rooms,
		users:       users,
		broadcaster: broadcaster,
		metrics:     metrics,
		now:         time.Now,
		states:      make(map[domain.RoomID]*roomState),
	}
}

// Send validates, checks participation, persists and broadcasts.
// Once accepted, the send is not cancelled by ctx: it either completes and
// broadcasts or fails and nothing is broadcast.
func (m *MessageService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, err
	}
	ok, err := m.rooms.IsParticipant(cmd.Room, cmd.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	if !ok {
		return domain.Message{}, errors.ErrNotParticipant
	}

	ctx = context.WithoutCancel(ctx)
	state := m.stateOf(cmd.Room)
	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.loaded {
		last, err := m.messages.LastMessage(cmd.Room)
		if err != nil {
			return domain.Message{}, err
		}
		if last != nil {
			state.last = last.CreatedAt
		}
		state.loaded = true
	}

	at := m.now().UTC()
	if !at.After(state.last) {
		at = state.last.Add(time.Nanosecond)
	}

	msg := domain.Message{
		ID:         uuid.New(),
		RoomID:     cmd.Room,
		SenderID:   cmd.SenderID,
		SenderName: cmd.SenderName,
		Content:    cmd.Content,
		CreatedAt:  at,
	}
	if cmd.Attachment != nil {
		msg.Attachment = lo.ToPtr(cmd.Attachment.ToAttachment(msg.ID))
	}

	if err = m.messages.StoreMessage(msg); err != nil {
		m.log.Error("Message not stored", "room_id", cmd.Room, "user_id", cmd.SenderID, "error", err)
		return domain.Message{}, err
	}
	state.last = at
	m.metrics.MessagesPersisted.Inc()

	m.broadcaster.ToRoom(ctx, cmd.Room, event.NewMessagePosted(msg))
	return msg, nil
}

// History returns the room's messages in ascending order with sender names
// resolved at read time. Non-participants get errors.ErrNotParticipant and
// no data.
func (m *MessageService) History(requester domain.UserID, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	ok, err := m.rooms.IsParticipant(roomID, requester)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.ErrNotParticipant
	}

	messages, next, err := m.messages.GetMessages(roomID, cursor)
	if err != nil {
		return nil, nil, err
	}
	senders := lo.Uniq(lo.Map(messages, func(msg domain.Message, _ int) domain.UserID { return msg.SenderID }))
	users, err := m.users.GetUsers(senders)
	if err != nil {
		return nil, nil, err
	}
	for i := range messages {
		messages[i].SenderName = users[messages[i].SenderID].DisplayName()
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, next, nil
}

func (m *MessageService) stateOf(roomID domain.RoomID) *roomState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[roomID]
	if !ok {
		state = &roomState{}
		m.states[roomID] = state
	}
	return state
}
