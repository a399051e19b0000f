//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	GetUser(id domain.UserID) (domain.User, error)
	GetUsers(ids []domain.UserID) (map[domain.UserID]domain.User, error)
	EnsureUser(user domain.User) (domain.User, error)
	UpdateProfile(id domain.UserID, name, phone string, photo *string) (domain.User, error)
	SearchUsers(requester domain.UserID, term string) ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

type diskUser struct {
	ID        string  `cbor:"id"`
	Name      string  `cbor:"name"`
	Email     string  `cbor:"email"`
	Phone     string  `cbor:"phone"`
	Photo     *string `cbor:"photo,omitempty"`
	CreatedAt int64   `cbor:"created_at"`
}

// GetUser returns errors.ErrUserNotFound when the id was never seen.
func (u UserRepository) GetUser(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err != nil && !errors.Is(err, errors.ErrUserNotFound) {
		return domain.User{}, errors.Storage(err)
	}
	return user, err
}

// GetUsers resolves several ids at once. Unknown ids are left out.
func (u UserRepository) GetUsers(ids []domain.UserID) (map[domain.UserID]domain.User, error) {
	users := make(map[domain.UserID]domain.User, len(ids))
	err := u.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			user, err := getUser(txn, id)
			if errors.Is(err, errors.ErrUserNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			users[id] = user
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	return users, nil
}

// EnsureUser stores the user if the id is unknown and returns the stored
// record either way. It is how the credential flow introduces a user.
func (u UserRepository) EnsureUser(user domain.User) (domain.User, error) {
	var stored domain.User
	err := u.db.Update(func(txn *badger.Txn) error {
		existing, err := getUser(txn, user.ID)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, errors.ErrUserNotFound) {
			return err
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		if user.Email != "" {
			if err = txn.Set(userEmailKey(user.Email), []byte(user.ID)); err != nil {
				return err
			}
		}
		if user.Phone != "" {
			if err = txn.Set(userPhoneKey(user.Phone), []byte(user.ID)); err != nil {
				return err
			}
		}
		stored = user
		return putUser(txn, user)
	})
	if err != nil {
		return domain.User{}, errors.Storage(err)
	}
	return stored, nil
}

// UpdateProfile completes or edits a profile. A phone number already held
// by another user is rejected.
func (u UserRepository) UpdateProfile(id domain.UserID, name, phone string, photo *string) (domain.User, error) {
	var updated domain.User
	err := u.db.Update(func(txn *badger.Txn) error {
		user, err := getUser(txn, id)
		if err != nil {
			return err
		}
		if phone != user.Phone {
			owner, err := lookupIndex(txn, userPhoneKey(phone))
			if err != nil {
				return err
			}
			if owner != "" && owner != id {
				return fmt.Errorf("%w: phone number already in use", errors.ErrInvalidProfile)
			}
			if user.Phone != "" {
				if err = txn.Delete(userPhoneKey(user.Phone)); err != nil {
					return err
				}
			}
			if err = txn.Set(userPhoneKey(phone), []byte(id)); err != nil {
				return err
			}
		}
		user.Name = name
		user.Phone = phone
		if photo != nil {
			user.Photo = photo
		}
		updated = user
		return putUser(txn, user)
	})
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, errors.ErrUserNotFound), errors.Is(err, errors.ErrValidation):
		return domain.User{}, err
	default:
		return domain.User{}, errors.Storage(err)
	}
}

// SearchUsers finds users whose email or phone equals term exactly,
// never returning the requester.
func (u UserRepository) SearchUsers(requester domain.UserID, term string) ([]domain.User, error) {
	var found []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		seen := map[domain.UserID]struct{}{requester: {}}
		for _, key := range [][]byte{userEmailKey(term), userPhoneKey(term)} {
			id, err := lookupIndex(txn, key)
			if err != nil {
				return err
			}
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			user, err := getUser(txn, id)
			if errors.Is(err, errors.ErrUserNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			found = append(found, user)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	if found == nil {
		found = []domain.User{}
	}
	return found, nil
}

func getUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	var du diskUser
	if err = item.Value(func(val []byte) error {
		return unmarshal(val, &du)
	}); err != nil {
		return domain.User{}, err
	}
	return toDomainUser(du), nil
}

func putUser(txn *badger.Txn, user domain.User) error {
	data, err := marshal(fromDomainUser(user))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return txn.Set(userKey(user.ID), data)
}

// lookupIndex returns the user id stored under an index key, or "" if absent.
func lookupIndex(txn *badger.Txn, key []byte) (domain.UserID, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return domain.UserID(val), nil
}

func fromDomainUser(u domain.User) diskUser {
	return diskUser{
		ID:        string(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt.UnixNano(),
	}
}

func toDomainUser(d diskUser) domain.User {
	return domain.User{
		ID:        domain.UserID(d.ID),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Photo:     d.Photo,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(),
	}
}
