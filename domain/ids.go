// Package domain contains core concepts of the chat system.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"fmt"
	"strconv"
)

// UserID is the identity carried by a bearer token.
type UserID string

func (u UserID) String() string { return string(u) }

// RoomID identifies a chat room. Values are allocated from a persisted
// sequence and start at 1; the zero value never names a room.
type RoomID uint64

func (r RoomID) String() string { return strconv.FormatUint(uint64(r), 10) }

func (r RoomID) IsZero() bool { return r == 0 }

// ParseRoomID parses the decimal form produced by String.
func ParseRoomID(s string) (RoomID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse room id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("parse room id %q: zero is not a room", s)
	}
	return RoomID(v), nil
}
