package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"strings"
)

type IProfileService interface {
	GetProfile(userID domain.UserID) (domain.User, error)
	UpdateProfile(userID domain.UserID, req auth.ProfileRequest) (domain.User, error)
	SearchUsers(userID domain.UserID, term string) ([]domain.User, error)
}

type ProfileService struct {
	users repositories.IUserRepository
}

func NewProfileService(users repositories.IUserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (p *ProfileService) GetProfile(userID domain.UserID) (domain.User, error) {
	return p.users.GetUser(userID)
}

func (p *ProfileService) UpdateProfile(userID domain.UserID, req auth.ProfileRequest) (domain.User, error) {
	if err := auth.ValidateProfile(req); err != nil {
		return domain.User{}, err
	}
	return p.users.UpdateProfile(userID, strings.TrimSpace(req.Name), req.Phone, req.Photo)
}

// SearchUsers matches an exact email or phone number.
func (p *ProfileService) SearchUsers(userID domain.UserID, term string) ([]domain.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", errors.ErrValidation)
	}
	return p.users.SearchUsers(userID, term)
}
