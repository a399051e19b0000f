package runtime

import (
	"chat-relay/domain"
	"sort"
	"sync"
)

// TypingTracker holds, per room, the users currently typing.
// Marks are never persisted; they vanish on stop or on disconnect.
type TypingTracker struct {
	mu     sync.Mutex
	byRoom map[domain.RoomID]map[domain.UserID]struct{}
	byUser map[domain.UserID]map[domain.RoomID]struct{}
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		byRoom: make(map[domain.RoomID]map[domain.UserID]struct{}),
		byUser: make(map[domain.UserID]map[domain.RoomID]struct{}),
	}
}

// Start marks the user as typing. Returns false if the mark already existed.
func (t *TypingTracker) Start(userID domain.UserID, roomID domain.RoomID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byRoom[roomID][userID]; ok {
		return false
	}
	if _, ok := t.byRoom[roomID]; !ok {
		t.byRoom[roomID] = make(map[domain.UserID]struct{})
	}
	if _, ok := t.byUser[userID]; !ok {
		t.byUser[userID] = make(map[domain.RoomID]struct{})
	}
	t.byRoom[roomID][userID] = struct{}{}
	t.byUser[userID][roomID] = struct{}{}
	return true
}

// Stop clears the mark. Returns false if the user was not typing there.
func (t *TypingTracker) Stop(userID domain.UserID, roomID domain.RoomID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.clear(userID, roomID)
}

// ClearUser removes every mark of the user in one step and returns the
// rooms that were cleared, in ascending order.
func (t *TypingTracker) ClearUser(userID domain.UserID) []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := sortedRooms(t.byUser[userID])
	for _, roomID := range rooms {
		t.clear(userID, roomID)
	}
	return rooms
}

func (t *TypingTracker) TypingIn(roomID domain.RoomID) []domain.UserID {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]domain.UserID, 0, len(t.byRoom[roomID]))
	for userID := range t.byRoom[roomID] {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

func (t *TypingTracker) clear(userID domain.UserID, roomID domain.RoomID) bool {
	users, ok := t.byRoom[roomID]
	if !ok {
		return false
	}
	if _, ok := users[userID]; !ok {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.byRoom, roomID)
	}
	if rooms, ok := t.byUser[userID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(t.byUser, userID)
		}
	}
	return true
}
