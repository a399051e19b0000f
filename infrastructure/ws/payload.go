package ws

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound event names.
const (
	JoinChats   = "join-chats"
	TypingStart = "typing-start"
	TypingStop  = "typing-stop"
	SendMessage = "send-message"
)

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// roomRef accepts a room id sent either as a JSON number or a string.
type roomRef domain.RoomID

func (r *roomRef) UnmarshalJSON(b []byte) error {
	id, err := domain.ParseRoomID(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*r = roomRef(id)
	return nil
}

type typingPayload struct {
	RoomID roomRef `json:"roomId" validate:"required"`
}

type attachmentPayload struct {
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
}

type sendMessagePayload struct {
	RoomID     roomRef            `json:"roomId" validate:"required"`
	Content    string             `json:"content" validate:"max=10000"`
	Attachment *attachmentPayload `json:"attachment"`
}

func (p sendMessagePayload) toCommand(c *Connection) domain.SendMessageCommand {
	cmd := domain.SendMessageCommand{
		Room:       domain.RoomID(p.RoomID),
		SenderID:   c.UserID(),
		SenderName: c.UserName(),
		Content:    p.Content,
	}
	if a := p.Attachment; a != nil {
		cmd.Attachment = &domain.AttachmentMeta{
			StoredName:   a.StoredName,
			OriginalName: a.OriginalName,
			SizeBytes:    a.SizeBytes,
			MimeType:     a.MimeType,
		}
	}
	return cmd
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: data is required", errors.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}
