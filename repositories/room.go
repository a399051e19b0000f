//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(room domain.Room, creator domain.UserID, invitees []domain.UserID) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	RoomsForUser(userID domain.UserID) ([]domain.RoomID, error)
	Participants(id domain.RoomID) ([]domain.Participant, error)
	IsParticipant(id domain.RoomID, userID domain.UserID) (bool, error)
}

type RoomRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewRoomRepository leases room ids from a persisted badger sequence.
// Close must be called to hand the unused part of the lease back.
func NewRoomRepository(db *badger.DB) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte(roomSequence), sequenceLease)
	if err != nil {
		return nil, errors.Storage(fmt.Errorf("room sequence: %w", err))
	}
	return &RoomRepository{db: db, seq: seq}, nil
}

// NewReadOnlyRoomRepository serves reads on a database opened read-only,
// where no sequence can be leased. CreateRoom fails on it.
func NewReadOnlyRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Close() error {
	if r.seq == nil {
		return nil
	}
	return r.seq.Release()
}

type diskRoom struct {
	ID        uint64  `cbor:"id"`
	Name      *string `cbor:"name,omitempty"`
	IsGroup   bool    `cbor:"is_group"`
	CreatedAt int64   `cbor:"created_at"`
}

type diskParticipant struct {
	RoomID   uint64 `cbor:"room_id"`
	UserID   string `cbor:"user_id"`
	JoinedAt int64  `cbor:"joined_at"`
}

// CreateRoom writes the room, one participant row per member and the
// reverse membership index in a single transaction. An invitee that does
// not exist aborts everything with errors.ErrUnknownUser.
func (r *RoomRepository) CreateRoom(room domain.Room, creator domain.UserID, invitees []domain.UserID) (domain.Room, error) {
	if r.seq == nil {
		return domain.Room{}, errors.Storage(fmt.Errorf("room repository is read-only"))
	}
	next, err := r.seq.Next()
	if err != nil {
		return domain.Room{}, errors.Storage(fmt.Errorf("next room id: %w", err))
	}
	// Badger sequences start at zero, room ids at one.
	room.ID = domain.RoomID(next + 1)
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		for _, id := range invitees {
			if _, err := txn.Get(userKey(id)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: %s", errors.ErrUnknownUser, id)
				}
				return err
			}
		}

		data, err := marshal(fromDomainRoom(room))
		if err != nil {
			return fmt.Errorf("marshal room: %w", err)
		}
		if err = txn.Set(roomKey(room.ID), data); err != nil {
			return err
		}

		for _, userID := range append([]domain.UserID{creator}, invitees...) {
			p := diskParticipant{RoomID: uint64(room.ID), UserID: string(userID), JoinedAt: room.CreatedAt.UnixNano()}
			data, err := marshal(p)
			if err != nil {
				return fmt.Errorf("marshal participant: %w", err)
			}
			if err = txn.Set(participantKey(room.ID, userID), data); err != nil {
				return err
			}
			if err = txn.Set(memberKey(userID, room.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			return domain.Room{}, err
		}
		return domain.Room{}, errors.Storage(err)
	}
	return room, nil
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var dr diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshal(val, &dr)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, errors.Storage(err)
	}
	return toDomainRoom(dr), nil
}

// ListRooms returns every room in ascending id order.
func (r *RoomRepository) ListRooms() ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dr diskRoom
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &dr)
			}); err != nil {
				return err
			}
			rooms = append(rooms, toDomainRoom(dr))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	return rooms, nil
}

// RoomsForUser lists the rooms a user belongs to, in ascending id order.
// Only keys are read.
func (r *RoomRepository) RoomsForUser(userID domain.UserID) ([]domain.RoomID, error) {
	rooms := []domain.RoomID{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if id, ok := parseMemberSuffix(it.Item().Key()[len(prefix):]); ok {
				rooms = append(rooms, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	return rooms, nil
}

func (r *RoomRepository) Participants(id domain.RoomID) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := participantPrefix(id)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dp diskParticipant
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &dp)
			}); err != nil {
				return err
			}
			participants = append(participants, domain.Participant{
				RoomID:   domain.RoomID(dp.RoomID),
				UserID:   domain.UserID(dp.UserID),
				JoinedAt: time.Unix(0, dp.JoinedAt).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err)
	}
	return participants, nil
}

func (r *RoomRepository) IsParticipant(id domain.RoomID, userID domain.UserID) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(participantKey(id, userID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Storage(err)
	}
	return true, nil
}

func fromDomainRoom(r domain.Room) diskRoom {
	return diskRoom{
		ID:        uint64(r.ID),
		Name:      r.Name,
		IsGroup:   r.IsGroup,
		CreatedAt: r.CreatedAt.UnixNano(),
	}
}

func toDomainRoom(d diskRoom) domain.Room {
	return domain.Room{
		ID:        domain.RoomID(d.ID),
		Name:      d.Name,
		IsGroup:   d.IsGroup,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(),
	}
}
