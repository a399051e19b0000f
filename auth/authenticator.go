package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"log/slog"
)

type IAuthenticator interface {
	Authenticate(ctx context.Context, bearer string) (Identity, error)
}

// Authenticator resolves a bearer token to the user it was issued for.
// The display name is read from the user store; a user that never
// completed a profile is attributed as domain.UnknownUserName.
type Authenticator struct {
	log    *slog.Logger
	tokens *TokenManager
	users  repositories.IUserRepository
}

func NewAuthenticator(log *slog.Logger, tokens *TokenManager, users repositories.IUserRepository) *Authenticator {
	return &Authenticator{log: log, tokens: tokens, users: users}
}

func (a *Authenticator) Authenticate(_ context.Context, bearer string) (Identity, error) {
	token, err := BearerToken(bearer)
	if err != nil {
		return Identity{}, err
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		a.log.Debug("Token rejected", "error", err)
		return Identity{}, err
	}

	userID := domain.UserID(claims.UserID)
	user, err := a.users.GetUser(userID)
	switch {
	case err == nil:
		return Identity{UserID: userID, UserName: user.DisplayName()}, nil
	case errors.Is(err, errors.ErrUserNotFound):
		return Identity{UserID: userID, UserName: domain.UnknownUserName}, nil
	default:
		return Identity{}, err
	}
}
