package domain

import (
	"chat-relay/errors"
	"strings"
)

// SendMessageCommand is the intent of a participant to post in a room.
type SendMessageCommand struct {
	Room       RoomID
	SenderID   UserID
	SenderName string
	Content    string
	Attachment *AttachmentMeta
}

// Validate rejects a message that would carry nothing.
func (c SendMessageCommand) Validate() error {
	if c.Room.IsZero() {
		return errors.ErrInvalidRoomID
	}
	if c.Attachment != nil {
		return c.Attachment.Validate()
	}
	if strings.TrimSpace(c.Content) == "" {
		return errors.ErrEmptyMessage
	}
	return nil
}

// CreateChatCommand asks for a new room between the creator and the invitees.
type CreateChatCommand struct {
	CreatorID UserID
	Invitees  []UserID
	Name      *string
}

// Members de-duplicates the invitees and rejects a request that invites nobody
// besides the creator.
func (c CreateChatCommand) Members() ([]UserID, error) {
	members := Members(c.CreatorID, c.Invitees)
	if len(members) < 2 {
		return nil, errors.ErrNoInvitees
	}
	return members, nil
}
