package event

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

// Type is the name of an event on the wire.
type Type string

const (
	NewMessageType        Type = "new-message"
	UserTypingType        Type = "user-typing"
	UserStoppedTypingType Type = "user-stopped-typing"
	NewChatCreatedType    Type = "new-chat-created"
	ChatsJoinedType       Type = "chats-joined"
	ErrorType             Type = "error"
)

// DomainEvent is anything the server pushes to a connected client.
type DomainEvent interface {
	Type() Type
}

// Envelope is the JSON frame exchanged over a realtime connection.
type Envelope struct {
	Event Type `json:"event"`
	Data  any  `json:"data"`
}

func Wrap(e DomainEvent) Envelope {
	return Envelope{Event: e.Type(), Data: e}
}

type AttachmentView struct {
	ID           string `json:"id"`
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
}

type MessagePosted struct {
	ID         uuid.UUID       `json:"id"`
	Room       domain.RoomID   `json:"roomId,string"`
	SenderID   domain.UserID   `json:"senderId"`
	SenderName string          `json:"senderName"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`
	Attachment *AttachmentView `json:"attachment,omitempty"`
}

func (MessagePosted) Type() Type { return NewMessageType }

func (m MessagePosted) RoomID() domain.RoomID { return m.Room }

// NewMessagePosted renders a persisted message as the event fanned out to
// the room.
func NewMessagePosted(msg domain.Message) MessagePosted {
	evt := MessagePosted{
		ID:         msg.ID,
		Room:       msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
	if a := msg.Attachment; a != nil {
		evt.Attachment = &AttachmentView{
			ID:           a.ID.String(),
			StoredName:   a.StoredName,
			OriginalName: a.OriginalName,
			SizeBytes:    a.SizeBytes,
			MimeType:     a.MimeType,
		}
	}
	return evt
}

type UserTyping struct {
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
	Room     domain.RoomID `json:"roomId,string"`
}

func (UserTyping) Type() Type { return UserTypingType }

func (u UserTyping) RoomID() domain.RoomID { return u.Room }

type UserStoppedTyping struct {
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
	Room     domain.RoomID `json:"roomId,string"`
}

func (UserStoppedTyping) Type() Type { return UserStoppedTypingType }

func (u UserStoppedTyping) RoomID() domain.RoomID { return u.Room }

// ChatCreated tells an online invitee that a room now includes them.
type ChatCreated struct {
	Room    domain.RoomID `json:"roomId,string"`
	Name    *string       `json:"name"`
	IsGroup bool          `json:"isGroup"`
}

func (ChatCreated) Type() Type { return NewChatCreatedType }

func (c ChatCreated) RoomID() domain.RoomID { return c.Room }

// ChatsJoined acknowledges a join-chats request with the rooms now subscribed.
type ChatsJoined struct {
	RoomIDs []string `json:"roomIds"`
}

func (ChatsJoined) Type() Type { return ChatsJoinedType }

func NewChatsJoined(rooms []domain.RoomID) ChatsJoined {
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.String())
	}
	return ChatsJoined{RoomIDs: ids}
}

// Failure reports a rejected request to its sender only.
type Failure struct {
	Message string `json:"message"`
}

func (Failure) Type() Type { return ErrorType }
