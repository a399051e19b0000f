package sink

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"sync"

	"github.com/google/uuid"
)

// Timeline is an in-process session that keeps every event it receives.
// It stands in for a network connection wherever a contract.Session is
// needed without a socket.
type Timeline struct {
	id       string
	userID   domain.UserID
	userName string

	mu     sync.Mutex
	events []event.DomainEvent
	fail   error
	closed bool
}

func NewTimeline(userID domain.UserID, userName string) *Timeline {
	return &Timeline{
		id:       uuid.NewString(),
		userID:   userID,
		userName: userName,
	}
}

func (t *Timeline) ID() string { return t.id }

func (t *Timeline) UserID() domain.UserID { return t.userID }

func (t *Timeline) UserName() string { return t.userName }

// FailWith makes every following Consume return err.
func (t *Timeline) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = err
}

func (t *Timeline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *Timeline) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Timeline) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.ErrSessionClosed
	}
	if t.fail != nil {
		err := t.fail
		t.mu.Unlock()
		return err
	}
	t.events = append(t.events, e)
	t.mu.Unlock()
	return nil
}

// Events returns a copy of what was received so far.
func (t *Timeline) Events() []event.DomainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]event.DomainEvent(nil), t.events...)
}

// OfType filters the received events by wire type.
func (t *Timeline) OfType(typ event.Type) []event.DomainEvent {
	var out []event.DomainEvent
	for _, e := range t.Events() {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns the contents of the received new-message events, in order.
func (t *Timeline) Messages() []string {
	var out []string
	for _, e := range t.OfType(event.NewMessageType) {
		out = append(out, e.(event.MessagePosted).Content)
	}
	return out
}
