package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"log/slog"
)

type IMembershipService interface {
	JoinChats(s contract.Session) ([]domain.RoomID, error)
}

// MembershipService connects persisted participation to live subscriptions.
type MembershipService struct {
	log      *slog.Logger
	rooms    repositories.IRoomRepository
	registry contract.IRegistry
}

func NewMembershipService(log *slog.Logger, rooms repositories.IRoomRepository, registry contract.IRegistry) *MembershipService {
	return &MembershipService{log: log, rooms: rooms, registry: registry}
}

// JoinChats subscribes the session to every room its user belongs to right
// now. Rooms created later reach the session through chat creation.
func (m *MembershipService) JoinChats(s contract.Session) ([]domain.RoomID, error) {
	rooms, err := m.rooms.RoomsForUser(s.UserID())
	if err != nil {
		return nil, err
	}
	for _, roomID := range rooms {
		if !m.registry.Subscribe(s, roomID) {
			return nil, errors.ErrSessionClosed
		}
	}
	m.log.Debug("Chats joined", "user_id", s.UserID(), "session_id", s.ID(), "rooms", len(rooms))
	return rooms, nil
}
