package repositories

import (
	"chat-relay/domain"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(room domain.RoomID, sender domain.UserID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		RoomID:    room,
		SenderID:  sender,
		Content:   content,
		CreatedAt: at,
	}
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	room := domain.RoomID(1)
	at := time.Now().UTC()
	messages := []domain.Message{
		newMessage(room, "alice", "hello", at),
		newMessage(room, "bob", "  exact   spacing\n", at.Add(1*time.Minute)),
		newMessage(room, "clara", "bye", at.Add(2*time.Minute)),
	}

	// Given messages stored out of order
	for _, i := range []int{2, 0, 1} {
		req.NoError(repository.StoreMessage(messages[i]))
	}

	// When the history is read
	fetched, cursor, err := repository.GetMessages(room, nil)

	// Then it comes back ascending, content untouched
	req.NoError(err)
	req.Nil(cursor)
	req.Equal(messages, fetched)
}

func Test_Messages_Of_Other_Rooms_Are_Not_Returned(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	req.NoError(repository.StoreMessage(newMessage(1, "alice", "one", at)))
	req.NoError(repository.StoreMessage(newMessage(10, "alice", "ten", at)))

	fetched, _, err := repository.GetMessages(1, nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("one", fetched[0].Content)
}

func Test_Empty_Room_Returns_Empty_Slice(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	fetched, cursor, err := repository.GetMessages(42, nil)

	req.NoError(err)
	req.NotNil(fetched)
	req.Empty(fetched)
	req.Nil(cursor)

	last, err := repository.LastMessage(42)
	req.NoError(err)
	req.Nil(last)
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), lo.ToPtr(2))
	room := domain.RoomID(1)
	at := time.Now().UTC()
	messages := []domain.Message{
		newMessage(room, "alice", "m1", at),
		newMessage(room, "bob", "m2", at.Add(1*time.Minute)),
		newMessage(room, "clara", "m3", at.Add(2*time.Minute)),
	}
	for _, m := range messages {
		req.NoError(repository.StoreMessage(m))
	}

	// When the first page is read
	page, cursor, err := repository.GetMessages(room, nil)

	// Then the two most recent messages come back ascending
	req.NoError(err)
	req.Equal(messages[1:], page)
	req.NotNil(cursor)

	// When the previous page is read
	older, cursor, err := repository.GetMessages(room, cursor)

	// Then only the oldest message remains
	req.NoError(err)
	req.Equal(messages[:1], older)
	req.Nil(cursor)
}

func Test_Message_With_Attachment(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	msg := newMessage(1, "alice", "", time.Now().UTC())
	meta := domain.AttachmentMeta{StoredName: "1700-1.png", OriginalName: "cat.png", SizeBytes: 512, MimeType: "image/png"}
	msg.Attachment = lo.ToPtr(meta.ToAttachment(msg.ID))

	req.NoError(repository.StoreMessage(msg))

	fetched, _, err := repository.GetMessages(1, nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.NotNil(fetched[0].Attachment)
	req.Equal(*msg.Attachment, *fetched[0].Attachment)

	last, err := repository.LastMessage(1)
	req.NoError(err)
	req.Equal(msg, *last)
}

func Test_Same_Nanosecond_Messages_Are_Both_Kept(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	req.NoError(repository.StoreMessage(newMessage(1, "alice", "a", at)))
	req.NoError(repository.StoreMessage(newMessage(1, "bob", "b", at)))

	fetched, _, err := repository.GetMessages(1, nil)
	req.NoError(err)
	req.Len(fetched, 2)
}
