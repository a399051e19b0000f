package repositories

import (
	"chat-relay/domain"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Key layout. Room ids are zero padded to 20 digits and timestamps to 19
// so that lexicographic order is numeric order.
//
//	user:{id}
//	user-email:{email}           -> user id
//	user-phone:{phone}           -> user id
//	room:{room}
//	participant:{room}:{user}
//	member:{user}:{room}         -> empty, reverse index
//	msg:{room}:{unixnano}:{uuid}
//	attachment:{message uuid}
//	seq:room                     -> badger sequence
const (
	roomIDWidth   = 20
	roomPrefix    = "room:"
	roomSequence  = "seq:room"
	sequenceLease = 100
)

func userKey(id domain.UserID) []byte { return []byte("user:" + string(id)) }

func userEmailKey(email string) []byte { return []byte("user-email:" + email) }

func userPhoneKey(phone string) []byte { return []byte("user-phone:" + phone) }

func roomKey(id domain.RoomID) []byte { return []byte(fmt.Sprintf(roomPrefix+"%020d", uint64(id))) }

func participantPrefix(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("participant:%020d:", uint64(id)))
}

func participantKey(id domain.RoomID, userID domain.UserID) []byte {
	return append(participantPrefix(id), string(userID)...)
}

func memberPrefix(userID domain.UserID) []byte {
	return []byte("member:" + string(userID) + ":")
}

func memberKey(userID domain.UserID, id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("member:%s:%020d", userID, uint64(id)))
}

// parseMemberSuffix reads the room id following a member prefix. It
// rejects keys of another user whose id merely starts with the same text.
func parseMemberSuffix(suffix []byte) (domain.RoomID, bool) {
	if len(suffix) != roomIDWidth {
		return 0, false
	}
	v, err := strconv.ParseUint(string(suffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return domain.RoomID(v), true
}

func messagePrefix(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%020d:", uint64(id)))
}

func messageKey(id domain.RoomID, at time.Time, msgID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%020d:%019d:%s", uint64(id), at.UnixNano(), msgID))
}

func attachmentKey(msgID uuid.UUID) []byte { return []byte("attachment:" + msgID.String()) }
