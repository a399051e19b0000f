package services

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
)

type ISessionService interface {
	Connect(s contract.Session) (superseded contract.Session)
	Disconnect(ctx context.Context, s contract.Session)
}

// SessionService owns the lifecycle of a live connection in the runtime
// stores: presence on connect, and the full cleanup on disconnect.
type SessionService struct {
	log         *slog.Logger
	presence    contract.IPresence
	registry    contract.IRegistry
	typing      contract.ITypingTracker
	broadcaster contract.IBroadcaster
	metrics     *observability.Metrics
}

func NewSessionService(
	log *slog.Logger,
	presence contract.IPresence,
	registry contract.IRegistry,
	typing contract.ITypingTracker,
	broadcaster contract.IBroadcaster,
	metrics *observability.Metrics,
) *SessionService {
	return &SessionService{
		log:         log,
		presence:    presence,
		registry:    registry,
		typing:      typing,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// Connect registers the session as the user's presence entry. The
// previous session of the same user, if any, is returned; it stays open
// but no longer receives room events.
func (s *SessionService) Connect(session contract.Session) contract.Session {
	previous, replaced := s.presence.Register(session)
	s.metrics.ActiveConnections.Inc()
	if replaced {
		s.metrics.SessionsSuperseded.Inc()
		s.log.Info("Presence superseded",
			"user_id", session.UserID(),
			"session_id", session.ID(),
			"previous_session_id", previous.ID())
		return previous
	}
	s.log.Debug("Session connected", "user_id", session.UserID(), "session_id", session.ID())
	return nil
}

// Disconnect removes the presence entry when it still belongs to this
// session, announces a stop for every room the user was typing in, and
// drops the session's subscriptions. Persisted state is left untouched.
// The session is closed first so that a concurrent Subscribe cannot bring
// it back after UnsubscribeAll.
func (s *SessionService) Disconnect(ctx context.Context, session contract.Session) {
	session.Close()
	removed := s.presence.Remove(session)
	s.metrics.ActiveConnections.Dec()

	for _, roomID := range s.typing.ClearUser(session.UserID()) {
		s.broadcaster.ToRoomExcept(ctx, roomID, event.UserStoppedTyping{
			UserID:   session.UserID(),
			UserName: session.UserName(),
			Room:     roomID,
		}, session)
	}

	rooms := s.registry.UnsubscribeAll(session)
	s.log.Debug("Session disconnected",
		"user_id", session.UserID(),
		"session_id", session.ID(),
		"presence_removed", removed,
		"rooms", len(rooms))
}
