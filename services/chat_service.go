package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"sort"
	"time"

	"github.com/samber/lo"
)

type IChatService interface {
	ListChats(userID domain.UserID) ([]ChatSummary, error)
	ChatDetails(userID domain.UserID, roomID domain.RoomID) (ChatDetails, error)
}

// ChatSummary is one row of a user's room list.
type ChatSummary struct {
	Room         domain.Room
	Title        string
	LastMessage  *domain.Message
	LastActivity time.Time
	// Counterpart is the other participant of a one-to-one room.
	Counterpart *domain.User
}

type ChatDetails struct {
	Room         domain.Room
	Title        string
	Participants []domain.User
}

// ChatService serves read models over rooms. A one-to-one counterpart is
// always derived from the participant rows, never stored.
type ChatService struct {
	rooms    repositories.IRoomRepository
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewChatService(rooms repositories.IRoomRepository, messages repositories.IMessageRepository, users repositories.IUserRepository) *ChatService {
	return &ChatService{rooms: rooms, messages: messages, users: users}
}

// ListChats returns the user's rooms, most recent activity first.
func (s *ChatService) ListChats(userID domain.UserID) ([]ChatSummary, error) {
	roomIDs, err := s.rooms.RoomsForUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ChatSummary, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		room, err := s.rooms.GetRoom(roomID)
		if err != nil {
			return nil, err
		}
		others, err := s.others(roomID, userID)
		if err != nil {
			return nil, err
		}
		last, err := s.messages.LastMessage(roomID)
		if err != nil {
			return nil, err
		}

		summary := ChatSummary{
			Room:         room,
			Title:        room.Title(names(others)),
			LastMessage:  last,
			LastActivity: room.CreatedAt,
		}
		if last != nil {
			last.SenderName = s.displayName(last.SenderID, others)
			summary.LastActivity = last.CreatedAt
		}
		if !room.IsGroup && len(others) > 0 {
			summary.Counterpart = lo.ToPtr(others[0])
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

func (s *ChatService) ChatDetails(userID domain.UserID, roomID domain.RoomID) (ChatDetails, error) {
	ok, err := s.rooms.IsParticipant(roomID, userID)
	if err != nil {
		return ChatDetails{}, err
	}
	if !ok {
		return ChatDetails{}, errors.ErrNotParticipant
	}
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return ChatDetails{}, err
	}
	participants, err := s.participants(roomID)
	if err != nil {
		return ChatDetails{}, err
	}
	others := lo.Filter(participants, func(u domain.User, _ int) bool { return u.ID != userID })
	return ChatDetails{
		Room:         room,
		Title:        room.Title(names(others)),
		Participants: participants,
	}, nil
}

// participants resolves the users of a room. Ids without a user record
// are kept with the fallback name.
func (s *ChatService) participants(roomID domain.RoomID) ([]domain.User, error) {
	rows, err := s.rooms.Participants(roomID)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(rows, func(p domain.Participant, _ int) domain.UserID { return p.UserID })
	users, err := s.users.GetUsers(ids)
	if err != nil {
		return nil, err
	}
	return lo.Map(ids, func(id domain.UserID, _ int) domain.User {
		if u, ok := users[id]; ok {
			return u
		}
		return domain.User{ID: id}
	}), nil
}

func (s *ChatService) others(roomID domain.RoomID, self domain.UserID) ([]domain.User, error) {
	participants, err := s.participants(roomID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(participants, func(u domain.User, _ int) bool { return u.ID != self }), nil
}

func (s *ChatService) displayName(id domain.UserID, others []domain.User) string {
	if u, ok := lo.Find(others, func(u domain.User) bool { return u.ID == id }); ok {
		return u.DisplayName()
	}
	if u, err := s.users.GetUser(id); err == nil {
		return u.DisplayName()
	}
	return domain.UnknownUserName
}

func names(users []domain.User) []string {
	return lo.Map(users, func(u domain.User, _ int) string { return u.DisplayName() })
}
