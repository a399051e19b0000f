package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
)

type ITypingService interface {
	StartTyping(ctx context.Context, s contract.Session, roomID domain.RoomID) error
	StopTyping(ctx context.Context, s contract.Session, roomID domain.RoomID) error
}

// TypingService relays typing marks. Nothing here touches storage: the
// session must already be subscribed to the room.
type TypingService struct {
	tracker     contract.ITypingTracker
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
}

func NewTypingService(tracker contract.ITypingTracker, registry contract.IRegistry, broadcaster contract.IBroadcaster) *TypingService {
	return &TypingService{tracker: tracker, registry: registry, broadcaster: broadcaster}
}

// StartTyping broadcasts on every call, even when the mark already existed.
func (t *TypingService) StartTyping(ctx context.Context, s contract.Session, roomID domain.RoomID) error {
	if !t.registry.IsSubscribed(s, roomID) {
		return errors.ErrNotSubscribed
	}
	t.tracker.Start(s.UserID(), roomID)
	t.broadcaster.ToRoomExcept(ctx, roomID, event.UserTyping{
		UserID:   s.UserID(),
		UserName: s.UserName(),
		Room:     roomID,
	}, s)
	return nil
}

func (t *TypingService) StopTyping(ctx context.Context, s contract.Session, roomID domain.RoomID) error {
	if !t.registry.IsSubscribed(s, roomID) {
		return errors.ErrNotSubscribed
	}
	t.tracker.Stop(s.UserID(), roomID)
	t.broadcaster.ToRoomExcept(ctx, roomID, event.UserStoppedTyping{
		UserID:   s.UserID(),
		UserName: s.UserName(),
		Room:     roomID,
	}, s)
	return nil
}
