//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	LastMessage(room domain.RoomID) (*domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository caps each page at limitMessages. nil or a
// non-positive limit returns whole histories.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	if limitMessages != nil && *limitMessages <= 0 {
		limitMessages = nil
	}
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskMessage struct {
	ID        string `cbor:"id"`
	RoomID    uint64 `cbor:"room_id"`
	SenderID  string `cbor:"sender_id"`
	Content   string `cbor:"content"`
	CreatedAt int64  `cbor:"created_at"`
}

type diskAttachment struct {
	ID           string `cbor:"id"`
	MessageID    string `cbor:"message_id"`
	StoredName   string `cbor:"stored_name"`
	OriginalName string `cbor:"original_name"`
	SizeBytes    int64  `cbor:"size_bytes"`
	MimeType     string `cbor:"mime_type"`
}

// StoreMessage persists a message and its attachment in one transaction.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the UUID as a tie breaker when two messages
//     share the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	data, err := marshal(fromDomainMessage(message))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	var attachment []byte
	if message.Attachment != nil {
		if attachment, err = marshal(fromDomainAttachment(*message.Attachment)); err != nil {
			return fmt.Errorf("marshal attachment: %w", err)
		}
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.RoomID, message.CreatedAt, message.ID), data); err != nil {
			return err
		}
		if attachment != nil {
			return txn.Set(attachmentKey(message.ID), attachment)
		}
		return nil
	})
	return errors.Storage(err)
}

// GetMessages returns messages of a room in ascending creation order.
//
// The scan walks backwards from the newest key (or from the cursor) so that
// when limitMessages is set, the most recent page is returned. The returned
// cursor points at the oldest message of the page; passing it back yields
// the page right before it. A nil cursor means there is nothing older.
func (m MessageRepository) GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var nextCursor *string
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back.
			seekKey = append(slices.Clone(prefix), []byte("9999999999999999999;")...)
		default:
			seekKey = append(slices.Clone(prefix), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				oldest := messageCursor(prefix, messages[len(messages)-1])
				nextCursor = &oldest
				break
			}
			msg, err := readMessage(txn, it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Storage(err)
	}
	slices.Reverse(messages)
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nextCursor, nil
}

// LastMessage returns the newest message of a room, or nil for an empty room.
func (m MessageRepository) LastMessage(room domain.RoomID) (*domain.Message, error) {
	var last *domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(append(slices.Clone(prefix), []byte("9999999999999999999;")...))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		msg, err := readMessage(txn, it.Item())
		if err != nil {
			return err
		}
		last = &msg
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	return last, nil
}

func messageCursor(prefix []byte, msg domain.Message) string {
	key := messageKey(msg.RoomID, msg.CreatedAt, msg.ID)
	return string(key[len(prefix):])
}

func readMessage(txn *badger.Txn, item *badger.Item) (domain.Message, error) {
	var dm diskMessage
	if err := item.Value(func(val []byte) error {
		return unmarshal(val, &dm)
	}); err != nil {
		return domain.Message{}, err
	}
	msg, err := toDomainMessage(dm)
	if err != nil {
		return domain.Message{}, err
	}

	att, err := txn.Get(attachmentKey(msg.ID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return msg, nil
	}
	if err != nil {
		return domain.Message{}, err
	}
	var da diskAttachment
	if err = att.Value(func(val []byte) error {
		return unmarshal(val, &da)
	}); err != nil {
		return domain.Message{}, err
	}
	attachment, err := toDomainAttachment(da)
	if err != nil {
		return domain.Message{}, err
	}
	msg.Attachment = &attachment
	return msg, nil
}

func fromDomainMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:        m.ID.String(),
		RoomID:    uint64(m.RoomID),
		SenderID:  string(m.SenderID),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UnixNano(),
	}
}

func toDomainMessage(d diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        id,
		RoomID:    domain.RoomID(d.RoomID),
		SenderID:  domain.UserID(d.SenderID),
		Content:   d.Content,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(),
	}, nil
}

func fromDomainAttachment(a domain.Attachment) diskAttachment {
	return diskAttachment{
		ID:           a.ID.String(),
		MessageID:    a.MessageID.String(),
		StoredName:   a.StoredName,
		OriginalName: a.OriginalName,
		SizeBytes:    a.SizeBytes,
		MimeType:     a.MimeType,
	}
}

func toDomainAttachment(d diskAttachment) (domain.Attachment, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Attachment{}, err
	}
	msgID, err := uuid.Parse(d.MessageID)
	if err != nil {
		return domain.Attachment{}, err
	}
	return domain.Attachment{
		ID:           id,
		MessageID:    msgID,
		StoredName:   d.StoredName,
		OriginalName: d.OriginalName,
		SizeBytes:    d.SizeBytes,
		MimeType:     d.MimeType,
	}, nil
}
