package domain

import "time"

// Participant binds a user to a room for the lifetime of the room.
type Participant struct {
	RoomID   RoomID
	UserID   UserID
	JoinedAt time.Time
}

// Members returns the participant set of a new room: the creator first, then
// every invitee once. The creator is never counted as an invitee.
func Members(creator UserID, invitees []UserID) []UserID {
	seen := map[UserID]struct{}{creator: {}}
	members := []UserID{creator}
	for _, id := range invitees {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	return members
}
