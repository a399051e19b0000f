//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is used for logging during the worker lifecycle.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Session is one authenticated live connection. Handles are compared by
// identity, two connections of the same user are two sessions.
// Close is idempotent and a closed session never becomes live again.
type Session interface {
	EventSink
	ID() string
	UserID() domain.UserID
	UserName() string
	Close()
	Closed() bool
}

// IPresence maps a user to the single session that currently represents them.
type IPresence interface {
	Register(s Session) (previous Session, replaced bool)
	Lookup(userID domain.UserID) (Session, bool)
	Remove(s Session) bool
	Count() int
}

// IRegistry tracks which sessions listen to which rooms.
type IRegistry interface {
	Subscribe(s Session, roomID domain.RoomID) bool
	Unsubscribe(s Session, roomID domain.RoomID)
	UnsubscribeAll(s Session) []domain.RoomID
	SessionsForRoom(roomID domain.RoomID) []Session
	IsSubscribed(s Session, roomID domain.RoomID) bool
	RoomsOf(s Session) []domain.RoomID
}

// ITypingTracker holds the ephemeral "is typing" marks.
type ITypingTracker interface {
	Start(userID domain.UserID, roomID domain.RoomID) bool
	Stop(userID domain.UserID, roomID domain.RoomID) bool
	ClearUser(userID domain.UserID) []domain.RoomID
	TypingIn(roomID domain.RoomID) []domain.UserID
}

// IBroadcaster delivers events to the live sessions of a room or a user.
type IBroadcaster interface {
	ToRoom(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) int
	ToRoomExcept(ctx context.Context, roomID domain.RoomID, e event.DomainEvent, except Session) int
	ToUser(ctx context.Context, userID domain.UserID, e event.DomainEvent) bool
}
