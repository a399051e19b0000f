package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/repositories"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type IAuthService interface {
	Register(email, name string) (domain.User, Token, error)
	IssueToken(userID domain.UserID) (Token, error)
}

// AuthService introduces users and mints their tokens. Production tokens
// come from the credential service; this path serves the seeding tool and
// tests.
type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register returns the user owning the email, creating it if needed, and
// a fresh token for it.
func (s *AuthService) Register(email, name string) (domain.User, Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := auth.ValidateStruct(struct {
		Email string `validate:"required,email"`
	}{email}); err != nil {
		return domain.User{}, "", err
	}

	id := domain.UserID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String())
	user, err := s.users.EnsureUser(domain.User{ID: id, Name: name, Email: email})
	if err != nil {
		return domain.User{}, "", err
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

func (s *AuthService) IssueToken(userID domain.UserID) (Token, error) {
	token, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	return Token(token), nil
}
