package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_EnsureUser_Keeps_Existing(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))

	first, err := repo.EnsureUser(domain.User{ID: "alice", Name: "Alice", Email: "alice@mail.test"})
	req.NoError(err)
	again, err := repo.EnsureUser(domain.User{ID: "alice", Name: "Other"})
	req.NoError(err)

	req.Equal(first, again)
	got, err := repo.GetUser("alice")
	req.NoError(err)
	req.Equal("Alice", got.Name)
}

func TestUserRepository_GetUser_Not_Found(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))

	_, err := repo.GetUser("nobody")

	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))
	seedUsers(t, repo, "alice", "bob")

	// Given alice completed her profile with a phone number
	photo := "avatar.png"
	updated, err := repo.UpdateProfile("alice", "Alice", "+33600000001", &photo)
	req.NoError(err)
	req.True(updated.IsRegistered())
	req.Equal("avatar.png", *updated.Photo)

	// When bob claims the same number
	_, err = repo.UpdateProfile("bob", "Bob", "+33600000001", nil)

	// Then it is rejected
	req.ErrorIs(err, errors.ErrInvalidProfile)

	// And alice can change hers, freeing the old one
	_, err = repo.UpdateProfile("alice", "Alice", "+33600000002", nil)
	req.NoError(err)
	_, err = repo.UpdateProfile("bob", "Bob", "+33600000001", nil)
	req.NoError(err)
}

func TestUserRepository_SearchUsers(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))
	seedUsers(t, repo, "alice", "bob")
	_, err := repo.UpdateProfile("bob", "Bob", "+33600000003", nil)
	req.NoError(err)

	byEmail, err := repo.SearchUsers("alice", "bob@mail.test")
	req.NoError(err)
	req.Len(byEmail, 1)
	req.Equal(domain.UserID("bob"), byEmail[0].ID)

	byPhone, err := repo.SearchUsers("alice", "+33600000003")
	req.NoError(err)
	req.Len(byPhone, 1)

	self, err := repo.SearchUsers("alice", "alice@mail.test")
	req.NoError(err)
	req.Empty(self)

	partial, err := repo.SearchUsers("alice", "bob")
	req.NoError(err)
	req.Empty(partial)
}

func TestUserRepository_GetUsers_Skips_Unknown(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))
	seedUsers(t, repo, "alice")

	users, err := repo.GetUsers([]domain.UserID{"alice", "ghost"})

	req.NoError(err)
	req.Len(users, 1)
	req.Equal("alice", users["alice"].Name)
}
