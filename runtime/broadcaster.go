package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// Broadcaster fans events out to live sessions.
//
// Delivery is best effort: no acknowledgment, no retry, no queueing for
// offline users. Sinks are fed one after the other so that two events
// broadcast in sequence to the same room reach every subscriber in that
// sequence.
//
// Only sessions that are still the user's presence entry receive room
// events; a connection superseded by a reconnect stops receiving.
type Broadcaster struct {
	log         *slog.Logger
	registry    contract.IRegistry
	presence    contract.IPresence
	metrics     *observability.Metrics
	sinkTimeout time.Duration
}

func NewBroadcaster(
	log *slog.Logger,
	registry contract.IRegistry,
	presence contract.IPresence,
	metrics *observability.Metrics,
	sinkTimeout time.Duration,
) *Broadcaster {
	return &Broadcaster{
		log:         log,
		registry:    registry,
		presence:    presence,
		metrics:     metrics,
		sinkTimeout: sinkTimeout,
	}
}

// ToRoom delivers to every subscriber of the room, the sender included.
// It returns the number of sessions that accepted the event.
func (b *Broadcaster) ToRoom(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) int {
	return b.ToRoomExcept(ctx, roomID, e, nil)
}

// ToRoomExcept is ToRoom without the given session.
func (b *Broadcaster) ToRoomExcept(ctx context.Context, roomID domain.RoomID, e event.DomainEvent, except contract.Session) int {
	delivered := 0
	for _, s := range b.registry.SessionsForRoom(roomID) {
		if except != nil && s == except {
			continue
		}
		if !b.isCurrent(s) {
			continue
		}
		if b.deliver(ctx, s, e) {
			delivered++
		}
	}
	return delivered
}

// ToUser delivers to the user's current session. Offline users are a
// silent no-op.
func (b *Broadcaster) ToUser(ctx context.Context, userID domain.UserID, e event.DomainEvent) bool {
	s, ok := b.presence.Lookup(userID)
	if !ok {
		return false
	}
	return b.deliver(ctx, s, e)
}

func (b *Broadcaster) isCurrent(s contract.Session) bool {
	current, ok := b.presence.Lookup(s.UserID())
	return ok && current == s
}

func (b *Broadcaster) deliver(ctx context.Context, s contract.Session, e event.DomainEvent) bool {
	sinkCtx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()

	if err := s.Consume(sinkCtx, e); err != nil {
		b.metrics.Deliveries.WithLabelValues(string(e.Type()), observability.OutcomeFailed).Inc()
		b.log.Debug("Event not delivered",
			"event", e.Type(),
			"session_id", s.ID(),
			"user_id", s.UserID(),
			"error", err)
		return false
	}
	b.metrics.Deliveries.WithLabelValues(string(e.Type()), observability.OutcomeDelivered).Inc()
	return true
}
