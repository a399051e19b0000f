package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sort"
	"sync"
)

type Set map[string]struct{}

// Registry tracks room subscriptions of live sessions.
// Sessions are keyed by their own id, not by user, so a superseded
// connection can be cleaned up without touching the fresh one.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]contract.Session           // session id -> session
	roomMembers  map[domain.RoomID]Set                 // room -> session ids
	sessionRooms map[string]map[domain.RoomID]struct{} // session id -> rooms
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:     make(map[string]contract.Session),
		roomMembers:  make(map[domain.RoomID]Set),
		sessionRooms: make(map[string]map[domain.RoomID]struct{}),
	}
}

// SessionsForRoom returns every session subscribed to the room.
// Returns nil if nobody listens to it.
func (r *Registry) SessionsForRoom(roomID domain.RoomID) []contract.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	sessions := make([]contract.Session, 0, len(members))
	for sessionID := range members {
		if s, exists := r.sessions[sessionID]; exists {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// Subscribe adds the room to the session's subscriptions. Idempotent.
// A closed session is refused: its UnsubscribeAll may already have run and
// nothing would remove it again.
func (r *Registry) Subscribe(s contract.Session, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Closed() {
		return false
	}
	id := s.ID()
	r.sessions[id] = s

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][id] = struct{}{}

	if _, ok := r.sessionRooms[id]; !ok {
		r.sessionRooms[id] = make(map[domain.RoomID]struct{})
	}
	r.sessionRooms[id][roomID] = struct{}{}
	return true
}

// Unsubscribe removes one room from the session. Empty sets are dropped
// so the maps do not grow with dead rooms or sessions.
func (r *Registry) Unsubscribe(s contract.Session, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unsubscribe(s.ID(), roomID)
}

// UnsubscribeAll forgets the session entirely and returns the rooms it
// was subscribed to.
func (r *Registry) UnsubscribeAll(s contract.Session) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.ID()
	rooms := sortedRooms(r.sessionRooms[id])
	for _, roomID := range rooms {
		r.unsubscribe(id, roomID)
	}
	delete(r.sessions, id)
	return rooms
}

func (r *Registry) IsSubscribed(s contract.Session, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.roomMembers[roomID][s.ID()]
	return ok
}

func (r *Registry) RoomsOf(s contract.Session) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedRooms(r.sessionRooms[s.ID()])
}

func (r *Registry) unsubscribe(sessionID string, roomID domain.RoomID) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	if rooms, ok := r.sessionRooms[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.sessionRooms, sessionID)
			delete(r.sessions, sessionID)
		}
	}
}

func sortedRooms(set map[domain.RoomID]struct{}) []domain.RoomID {
	rooms := make([]domain.RoomID, 0, len(set))
	for roomID := range set {
		rooms = append(rooms, roomID)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}
