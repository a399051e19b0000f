package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"
)

type IChatCreationCoordinator interface {
	Create(ctx context.Context, cmd domain.CreateChatCommand) (domain.Room, error)
}

// ChatCreationCoordinator commits a room with its participants, then tells
// the online invitees. The commit is all or nothing; the notification is
// best effort and never undoes the commit.
type ChatCreationCoordinator struct {
	log         *slog.Logger
	rooms       repositories.IRoomRepository
	presence    contract.IPresence
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewChatCreationCoordinator(
	log *slog.Logger,
	rooms repositories.IRoomRepository,
	presence contract.IPresence,
	registry contract.IRegistry,
	broadcaster contract.IBroadcaster,
	metrics *observability.Metrics,
) *ChatCreationCoordinator {
	return &ChatCreationCoordinator{
		log:         log,
		rooms:       rooms,
		presence:    presence,
		registry:    registry,
		broadcaster: broadcaster,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (c *ChatCreationCoordinator) Create(ctx context.Context, cmd domain.CreateChatCommand) (domain.Room, error) {
	members, err := cmd.Members()
	if err != nil {
		return domain.Room{}, err
	}
	invitees := members[1:]

	room, err := c.rooms.CreateRoom(domain.NewRoom(cmd.Name, len(invitees), c.now().UTC()), cmd.CreatorID, invitees)
	if err != nil {
		return domain.Room{}, err
	}
	c.metrics.RoomsCreated.Inc()
	c.log.Info("Room created", "room_id", room.ID, "user_id", cmd.CreatorID, "participants", len(members))

	c.notify(context.WithoutCancel(ctx), room, cmd.CreatorID, invitees)
	return room, nil
}

// notify subscribes each online invitee before pushing the notice, so a
// message sent right after creation cannot slip between the two. The
// creator's session is subscribed silently.
func (c *ChatCreationCoordinator) notify(ctx context.Context, room domain.Room, creator domain.UserID, invitees []domain.UserID) {
	if s, ok := c.presence.Lookup(creator); ok {
		c.registry.Subscribe(s, room.ID)
	}

	notice := event.ChatCreated{Room: room.ID, Name: room.Name, IsGroup: room.IsGroup}
	for _, invitee := range invitees {
		s, ok := c.presence.Lookup(invitee)
		if !ok {
			continue
		}
		if !c.registry.Subscribe(s, room.ID) {
			// Gone between lookup and subscribe; join-chats covers the next session.
			c.log.Debug("Invitee disconnected before the notice", "room_id", room.ID, "user_id", invitee)
			continue
		}
		if !c.broadcaster.ToUser(ctx, invitee, notice) {
			c.metrics.NotificationFailures.Inc()
			c.log.Warn("Room creation notice not delivered",
				"room_id", room.ID,
				"user_id", invitee,
				"error", fmt.Errorf("%w: %s", errors.ErrNotification, invitee))
		}
	}
}
