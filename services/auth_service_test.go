package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenManager("secret", "chat-relay", time.Hour)
	svc := NewAuthService(mockRepo, tokens)

	t.Run("should register and mint a token bound to the user", func(t *testing.T) {
		req := require.New(t)
		var captured domain.User
		mockRepo.EXPECT().
			EnsureUser(gomock.Any()).
			DoAndReturn(func(u domain.User) (domain.User, error) {
				captured = u
				return u, nil
			}).
			Times(1)

		user, token, err := svc.Register(" Test@Example.com ", "Test")

		req.NoError(err)
		req.Equal("test@example.com", user.Email)
		req.Equal(captured.ID, user.ID)
		claims, err := tokens.ValidateToken(token.String())
		req.NoError(err)
		req.Equal(string(user.ID), claims.UserID)
	})

	t.Run("should derive the same id for the same email", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			EnsureUser(gomock.Any()).
			DoAndReturn(func(u domain.User) (domain.User, error) { return u, nil }).
			Times(2)

		first, _, err := svc.Register("same@example.com", "A")
		req.NoError(err)
		second, _, err := svc.Register("SAME@example.com", "B")
		req.NoError(err)

		req.Equal(first.ID, second.ID)
	})

	t.Run("should fail when email is invalid", func(t *testing.T) {
		req := require.New(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().EnsureUser(gomock.Any()).Times(0)

		_, token, err := svc.Register("not-an-email", "Test")

		req.ErrorIs(err, errors.ErrValidation)
		req.Empty(token)
	})

	t.Run("should surface storage failures", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			EnsureUser(gomock.Any()).
			Return(domain.User{}, errors.Storage(errors.New("disk full"))).
			Times(1)

		_, _, err := svc.Register("user@example.com", "User")

		req.ErrorIs(err, errors.ErrStorage)
	})
}
