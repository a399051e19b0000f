package domain

import (
	"strings"
	"time"
)

const DefaultGroupName = "Group Chat"

// Room is a conversation context. Its participant set is fixed at creation.
type Room struct {
	ID        RoomID
	Name      *string
	IsGroup   bool
	CreatedAt time.Time
}

// NewRoom builds the room record for a creation request. A room is a group
// as soon as more than one user is invited besides the creator.
func NewRoom(name *string, inviteeCount int, at time.Time) Room {
	if name != nil && strings.TrimSpace(*name) == "" {
		name = nil
	}
	return Room{
		Name:      name,
		IsGroup:   inviteeCount > 1,
		CreatedAt: at,
	}
}

// Title resolves the name shown for a room. Unnamed one-to-one rooms take the
// names of the other participants, unnamed groups a generic label.
func (r Room) Title(others []string) string {
	if r.Name != nil {
		return *r.Name
	}
	if r.IsGroup {
		return DefaultGroupName
	}
	if len(others) == 0 {
		return UnknownUserName
	}
	return strings.Join(others, ", ")
}
