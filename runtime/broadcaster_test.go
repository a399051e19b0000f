package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/sink"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry    *Registry
	presence    *Presence
	metrics     *observability.Metrics
	broadcaster *Broadcaster
}

func newFixture() fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	presence := NewPresence()
	metrics := observability.NewTestMetrics()
	return fixture{
		registry:    registry,
		presence:    presence,
		metrics:     metrics,
		broadcaster: NewBroadcaster(log, registry, presence, metrics, time.Second),
	}
}

func (f fixture) connect(s *sink.Timeline, rooms ...uint64) {
	f.presence.Register(s)
	for _, r := range rooms {
		f.registry.Subscribe(s, domain.RoomID(r))
	}
}

func TestBroadcaster_ToRoom_Includes_Sender(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alice := sink.NewTimeline("alice", "Alice")
	bob := sink.NewTimeline("bob", "Bob")
	carol := sink.NewTimeline("carol", "Carol")

	// Given alice and bob in room 1, carol in room 2
	f.connect(alice, 1)
	f.connect(bob, 1)
	f.connect(carol, 2)

	// When a message is broadcast to room 1
	n := f.broadcaster.ToRoom(context.Background(), 1, event.MessagePosted{Room: 1, Content: "hi"})

	// Then both members of room 1 get it, carol does not
	req.Equal(2, n)
	req.Equal([]string{"hi"}, alice.Messages())
	req.Equal([]string{"hi"}, bob.Messages())
	req.Empty(carol.Events())
	req.Equal(2.0, testutil.ToFloat64(f.metrics.Deliveries.WithLabelValues(string(event.NewMessageType), observability.OutcomeDelivered)))
}

func TestBroadcaster_ToRoomExcept_Skips_Origin(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alice := sink.NewTimeline("alice", "Alice")
	bob := sink.NewTimeline("bob", "Bob")
	f.connect(alice, 1)
	f.connect(bob, 1)

	f.broadcaster.ToRoomExcept(context.Background(), 1, event.UserTyping{UserID: "alice", Room: 1}, alice)

	req.Empty(alice.Events())
	req.Len(bob.OfType(event.UserTypingType), 1)
}

func TestBroadcaster_Superseded_Session_Stops_Receiving(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	oldTab := sink.NewTimeline("alice", "Alice")
	newTab := sink.NewTimeline("alice", "Alice")

	// Given two tabs of the same user subscribed to a room, the second registered last
	f.connect(oldTab, 1)
	f.connect(newTab, 1)

	// When the room receives an event
	f.broadcaster.ToRoom(context.Background(), 1, event.MessagePosted{Room: 1, Content: "hi"})

	// Then only the latest tab gets it
	req.Empty(oldTab.Events())
	req.Equal([]string{"hi"}, newTab.Messages())
}

func TestBroadcaster_ToUser(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	alice := sink.NewTimeline("alice", "Alice")
	f.presence.Register(alice)

	req.True(f.broadcaster.ToUser(context.Background(), "alice", event.ChatCreated{Room: 7}))
	req.False(f.broadcaster.ToUser(context.Background(), "bob", event.ChatCreated{Room: 7}))
	req.Len(alice.OfType(event.NewChatCreatedType), 1)
}

func TestBroadcaster_Failing_Sink_Does_Not_Block_Others(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	broken := sink.NewTimeline("alice", "Alice")
	healthy := sink.NewTimeline("bob", "Bob")
	broken.FailWith(errors.ErrSlowConsumer)
	f.connect(broken, 1)
	f.connect(healthy, 1)

	n := f.broadcaster.ToRoom(context.Background(), 1, event.MessagePosted{Room: 1, Content: "hi"})

	req.Equal(1, n)
	req.Equal([]string{"hi"}, healthy.Messages())
	req.Equal(1.0, testutil.ToFloat64(f.metrics.Deliveries.WithLabelValues(string(event.NewMessageType), observability.OutcomeFailed)))
}

func TestBroadcaster_Preserves_Order_Within_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	bob := sink.NewTimeline("bob", "Bob")
	f.connect(bob, 1)

	for _, c := range []string{"first", "second", "third"} {
		f.broadcaster.ToRoom(context.Background(), 1, event.MessagePosted{Room: 1, Content: c})
	}

	req.Equal([]string{"first", "second", "third"}, bob.Messages())
}
