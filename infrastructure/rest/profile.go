package rest

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/samber/lo"
)

type userResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Photo        *string `json:"photo"`
	IsRegistered bool    `json:"isRegistered"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           string(u.ID),
		Name:         u.DisplayName(),
		Email:        u.Email,
		Phone:        u.Phone,
		Photo:        u.Photo,
		IsRegistered: u.IsRegistered(),
	}
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.Profiles.GetProfile(identity(r).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body auth.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidProfile, err))
		return
	}
	user, err := s.Profiles.UpdateProfile(identity(r).UserID, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Profiles.SearchUsers(identity(r).UserID, r.URL.Query().Get("term"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(users, func(u domain.User, _ int) userResponse { return toUserResponse(u) }))
}
