package rest

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/services"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

type roomResponse struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	Title     string    `json:"title"`
	IsGroup   bool      `json:"isGroup"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatSummaryResponse struct {
	roomResponse
	LastMessage  *event.MessagePosted `json:"lastMessage"`
	LastActivity time.Time            `json:"lastActivity"`
	Counterpart  *userResponse        `json:"counterpart,omitempty"`
}

type chatDetailsResponse struct {
	roomResponse
	Participants []userResponse `json:"participants"`
}

type historyResponse struct {
	Messages   []event.MessagePosted `json:"messages"`
	NextCursor *string               `json:"nextCursor"`
}

type createChatRequest struct {
	Users []string `json:"users" validate:"required,min=1,dive,required"`
	Name  *string  `json:"name" validate:"omitempty,max=64"`
}

type attachmentRequest struct {
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
}

type postMessageRequest struct {
	Content    string             `json:"content" validate:"max=10000"`
	Attachment *attachmentRequest `json:"attachment"`
}

func toRoomResponse(room domain.Room, title string) roomResponse {
	return roomResponse{
		ID:        room.ID.String(),
		Name:      room.Name,
		Title:     title,
		IsGroup:   room.IsGroup,
		CreatedAt: room.CreatedAt,
	}
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.Chats.ListChats(identity(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(chats, func(c services.ChatSummary, _ int) chatSummaryResponse {
		res := chatSummaryResponse{
			roomResponse: toRoomResponse(c.Room, c.Title),
			LastActivity: c.LastActivity,
		}
		if c.LastMessage != nil {
			res.LastMessage = lo.ToPtr(event.NewMessagePosted(*c.LastMessage))
		}
		if c.Counterpart != nil {
			res.Counterpart = lo.ToPtr(toUserResponse(*c.Counterpart))
		}
		return res
	}))
}

// createChat answers the creator directly; invitees learn about the room
// through the realtime notice.
func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var body createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	if err := auth.ValidateStruct(body); err != nil {
		writeError(w, err)
		return
	}

	room, err := s.Creator.Create(r.Context(), domain.CreateChatCommand{
		CreatorID: identity(r).UserID,
		Invitees:  lo.Map(body.Users, func(u string, _ int) domain.UserID { return domain.UserID(u) }),
		Name:      body.Name,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomResponse(room, room.Title(nil)))
}

func (s *Server) chatDetails(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := s.Chats.ChatDetails(identity(r).UserID, roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatDetailsResponse{
		roomResponse: toRoomResponse(details.Room, details.Title),
		Participants: lo.Map(details.Participants, func(u domain.User, _ int) userResponse { return toUserResponse(u) }),
	})
}

// history takes an optional cursor returned by a previous page.
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := s.Messages.History(identity(r).UserID, roomID, cursor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Messages:   lo.Map(messages, func(m domain.Message, _ int) event.MessagePosted { return event.NewMessagePosted(m) }),
		NextCursor: next,
	})
}

// postMessage is the HTTP twin of the send-message event: the stored
// message is returned and also broadcast to the room's live sessions.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	if err := auth.ValidateStruct(body); err != nil {
		writeError(w, err)
		return
	}

	id := identity(r)
	cmd := domain.SendMessageCommand{
		Room:       roomID,
		SenderID:   id.UserID,
		SenderName: id.UserName,
		Content:    body.Content,
	}
	if a := body.Attachment; a != nil {
		cmd.Attachment = &domain.AttachmentMeta{
			StoredName:   a.StoredName,
			OriginalName: a.OriginalName,
			SizeBytes:    a.SizeBytes,
			MimeType:     a.MimeType,
		}
	}
	msg, err := s.Messages.Send(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event.NewMessagePosted(msg))
}

func roomIDFrom(r *http.Request) (domain.RoomID, error) {
	roomID, err := domain.ParseRoomID(mux.Vars(r)["roomId"])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidRoomID, err)
	}
	return roomID, nil
}
