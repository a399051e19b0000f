package domain

import (
	"chat-relay/errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestNewRoom_IsGroupDependsOnInviteeCount(t *testing.T) {
	req := require.New(t)
	at := time.Now()

	req.False(NewRoom(nil, 1, at).IsGroup)
	req.True(NewRoom(nil, 2, at).IsGroup)
	req.True(NewRoom(ptr("Team"), 5, at).IsGroup)
}

func TestNewRoom_BlankNameIsDropped(t *testing.T) {
	req := require.New(t)

	room := NewRoom(ptr("   "), 1, time.Now())

	req.Nil(room.Name)
}

func TestRoom_Title(t *testing.T) {
	tests := []struct {
		name   string
		room   Room
		others []string
		want   string
	}{
		{"Explicit name wins", Room{Name: ptr("Team"), IsGroup: true}, []string{"Bob"}, "Team"},
		{"Unnamed group", Room{IsGroup: true}, []string{"Bob", "Carol"}, DefaultGroupName},
		{"Unnamed one to one", Room{}, []string{"Bob"}, "Bob"},
		{"No counterpart", Room{}, nil, UnknownUserName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.room.Title(tt.others))
		})
	}
}

func TestMembers_DeduplicatesAndDropsCreator(t *testing.T) {
	req := require.New(t)

	// Given an invitee list repeating a user and containing the creator
	invitees := []UserID{"bob", "carol", "bob", "alice", ""}

	// When the member set is computed
	members := Members("alice", invitees)

	// Then the creator comes first and each invitee appears once
	req.Equal([]UserID{"alice", "bob", "carol"}, members)
}

func TestCreateChatCommand_RejectsSelfOnlyInvitation(t *testing.T) {
	req := require.New(t)

	cmd := CreateChatCommand{CreatorID: "alice", Invitees: []UserID{"alice"}}
	_, err := cmd.Members()

	req.ErrorIs(err, errors.ErrNoInvitees)
	req.ErrorIs(err, errors.ErrValidation)
}

func TestSendMessageCommand_Validate(t *testing.T) {
	valid := &AttachmentMeta{
		StoredName:   "1700000000-123.png",
		OriginalName: "cat.png",
		SizeBytes:    2048,
		MimeType:     "image/png",
	}

	tests := []struct {
		name    string
		cmd     SendMessageCommand
		wantErr error
	}{
		{"Text only", SendMessageCommand{Room: 1, Content: "hi"}, nil},
		{"Whitespace only", SendMessageCommand{Room: 1, Content: "  \n\t"}, errors.ErrEmptyMessage},
		{"Empty content with attachment", SendMessageCommand{Room: 1, Attachment: valid}, nil},
		{"Zero room", SendMessageCommand{Content: "hi"}, errors.ErrInvalidRoomID},
		{"Attachment with path", SendMessageCommand{Room: 1, Attachment: &AttachmentMeta{
			StoredName: "../etc/passwd", OriginalName: "x.txt", SizeBytes: 1, MimeType: "text/plain",
		}}, errors.ErrInvalidAttachment},
		{"Attachment with rejected type", SendMessageCommand{Room: 1, Attachment: &AttachmentMeta{
			StoredName: "a.exe", OriginalName: "a.exe", SizeBytes: 1, MimeType: "application/x-msdownload",
		}}, errors.ErrFileTypeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, errors.ErrValidation)
		})
	}
}

func TestAttachmentMeta_ToAttachment(t *testing.T) {
	req := require.New(t)
	msgID := uuid.New()
	meta := AttachmentMeta{StoredName: "s.pdf", OriginalName: "report.pdf", SizeBytes: 10, MimeType: "application/pdf"}

	att := meta.ToAttachment(msgID)

	req.Equal(msgID, att.MessageID)
	req.NotEqual(uuid.Nil, att.ID)
	req.Equal("report.pdf", att.OriginalName)
}

func TestParseRoomID(t *testing.T) {
	req := require.New(t)

	id, err := ParseRoomID("42")
	req.NoError(err)
	req.Equal(RoomID(42), id)
	req.Equal("42", id.String())

	_, err = ParseRoomID("0")
	req.Error(err)
	_, err = ParseRoomID("abc")
	req.Error(err)
}

func TestUser_DisplayName(t *testing.T) {
	req := require.New(t)

	req.Equal(UnknownUserName, User{ID: "u1"}.DisplayName())
	req.Equal("Alice", User{ID: "u1", Name: "Alice"}.DisplayName())
	req.False(User{Name: "Alice"}.IsRegistered())
	req.True(User{Name: "Alice", Phone: "+33600000000"}.IsRegistered())
}
