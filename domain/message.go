package domain

import (
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat record. CreatedAt is assigned by the server.
type Message struct {
	ID         uuid.UUID
	RoomID     RoomID
	SenderID   UserID
	SenderName string
	Content    string
	CreatedAt  time.Time
	Attachment *Attachment
}

// Attachment is the metadata of a file stored by the file service.
// It belongs to exactly one message.
type Attachment struct {
	ID           uuid.UUID
	MessageID    uuid.UUID
	StoredName   string
	OriginalName string
	SizeBytes    int64
	MimeType     string
}

// AttachmentMeta is the handoff produced by an upload and attached to a
// subsequent send.
type AttachmentMeta struct {
	StoredName   string
	OriginalName string
	SizeBytes    int64
	MimeType     string
}

// Validate checks the metadata before it is linked to a message.
func (a AttachmentMeta) Validate() error {
	switch {
	case strings.TrimSpace(a.StoredName) == "":
		return fmt.Errorf("%w: stored name is empty", errors.ErrInvalidAttachment)
	case filepath.Base(a.StoredName) != a.StoredName:
		return fmt.Errorf("%w: stored name must not contain a path", errors.ErrInvalidAttachment)
	case strings.TrimSpace(a.OriginalName) == "":
		return fmt.Errorf("%w: original name is empty", errors.ErrInvalidAttachment)
	case a.SizeBytes <= 0:
		return fmt.Errorf("%w: size must be positive", errors.ErrInvalidAttachment)
	case !mimetypes.IsAllowed(a.MimeType):
		return fmt.Errorf("%w: type %q", errors.ErrFileTypeRejected, a.MimeType)
	}
	return nil
}

// ToAttachment links the metadata to its owning message.
func (a AttachmentMeta) ToAttachment(messageID uuid.UUID) Attachment {
	return Attachment{
		ID:           uuid.New(),
		MessageID:    messageID,
		StoredName:   a.StoredName,
		OriginalName: a.OriginalName,
		SizeBytes:    a.SizeBytes,
		MimeType:     a.MimeType,
	}
}
