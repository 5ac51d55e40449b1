package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"echoforge/domain"
	"echoforge/domain/event"
	"echoforge/errors"
)

func newTestBroadcaster() (*Broadcaster, *SessionRegistry, *RoomTracker) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewSessionRegistry()
	rooms := NewRoomTracker()
	return NewBroadcaster(log, registry, rooms), registry, rooms
}

func TestBroadcaster_PresenceChanged_Reaches_Every_Connection(t *testing.T) {
	req := require.New(t)
	broadcaster, registry, _ := newTestBroadcaster()

	sink1 := &captureSink{}
	sink2 := &captureSink{}
	registry.Register(1, "conn-1", sink1)
	registry.Register(2, "conn-2", sink2)

	broadcaster.PresenceChanged(context.Background(), 1, domain.StatusOnline)

	for _, sink := range []*captureSink{sink1, sink2} {
		events := sink.received()
		req.Len(events, 1)
		presence := events[0].(event.PresenceChanged)
		req.Equal(int64(1), presence.UserID)
		req.Equal(domain.StatusOnline, presence.Status)
	}
}

func TestBroadcaster_Typing(t *testing.T) {
	ctx := context.Background()

	t.Run("should notify room members but never the sender", func(t *testing.T) {
		req := require.New(t)
		broadcaster, registry, rooms := newTestBroadcaster()

		sender := &captureSink{}
		member := &captureSink{}
		registry.Register(1, "conn-sender", sender)
		registry.Register(2, "conn-member", member)
		rooms.Join(7, "conn-sender")
		rooms.Join(7, "conn-member")

		err := broadcaster.Typing(ctx, "conn-sender", lo.ToPtr(int64(7)), nil, false)

		req.NoError(err)
		req.Empty(sender.received())
		req.Equal([]string{"user_typing"}, member.names())

		typing := member.received()[0].(event.UserTyping)
		req.Equal(int64(1), typing.UserID)
		req.Equal(int64(7), *typing.ChannelID)
	})

	t.Run("should emit a stop event when typing ends", func(t *testing.T) {
		req := require.New(t)
		broadcaster, registry, rooms := newTestBroadcaster()

		member := &captureSink{}
		registry.Register(1, "conn-sender", &captureSink{})
		registry.Register(2, "conn-member", member)
		rooms.Join(7, "conn-sender")
		rooms.Join(7, "conn-member")

		err := broadcaster.Typing(ctx, "conn-sender", lo.ToPtr(int64(7)), nil, true)

		req.NoError(err)
		req.Equal([]string{"user_stop_typing"}, member.names())
	})

	t.Run("should notify only the target of a direct conversation", func(t *testing.T) {
		req := require.New(t)
		broadcaster, registry, _ := newTestBroadcaster()

		recipient := &captureSink{}
		bystander := &captureSink{}
		registry.Register(1, "conn-sender", &captureSink{})
		registry.Register(2, "conn-recipient", recipient)
		registry.Register(3, "conn-bystander", bystander)

		err := broadcaster.Typing(ctx, "conn-sender", nil, lo.ToPtr(int64(2)), false)

		req.NoError(err)
		req.Equal([]string{"user_typing"}, recipient.names())
		req.Empty(bystander.received())

		typing := recipient.received()[0].(event.UserTyping)
		req.Nil(typing.ChannelID)
	})

	t.Run("should drop the event silently when the target is offline", func(t *testing.T) {
		req := require.New(t)
		broadcaster, registry, _ := newTestBroadcaster()

		registry.Register(1, "conn-sender", &captureSink{})

		err := broadcaster.Typing(ctx, "conn-sender", nil, lo.ToPtr(int64(99)), false)
		req.NoError(err)
	})

	t.Run("should reject an unauthenticated connection", func(t *testing.T) {
		req := require.New(t)
		broadcaster, _, _ := newTestBroadcaster()

		err := broadcaster.Typing(ctx, "conn-ghost", lo.ToPtr(int64(7)), nil, false)
		req.ErrorIs(err, errors.ErrUnauthorized)
	})
}

func TestBroadcaster_RelayFriendRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("should pass the payload through verbatim", func(t *testing.T) {
		req := require.New(t)
		broadcaster, registry, _ := newTestBroadcaster()

		recipient := &captureSink{}
		registry.Register(1, "conn-sender", &captureSink{})
		registry.Register(2, "conn-recipient", recipient)

		payload := json.RawMessage(`{"from":1,"note":"hi"}`)
		err := broadcaster.RelayFriendRequest(ctx, "conn-sender", 2, payload)

		req.NoError(err)
		events := recipient.received()
		req.Len(events, 1)
		relayed := events[0].(event.FriendRequestReceived)
		req.JSONEq(string(payload), string(relayed.Payload))
	})

	t.Run("should do nothing when the recipient is offline", func(t *testing.T) {
		req := require.New(t)
		broadcaster, registry, _ := newTestBroadcaster()

		registry.Register(1, "conn-sender", &captureSink{})

		err := broadcaster.RelayFriendRequest(ctx, "conn-sender", 99, json.RawMessage(`{}`))
		req.NoError(err)
	})

	t.Run("should reject an unauthenticated connection", func(t *testing.T) {
		req := require.New(t)
		broadcaster, _, _ := newTestBroadcaster()

		err := broadcaster.RelayFriendRequest(ctx, "conn-ghost", 2, json.RawMessage(`{}`))
		req.ErrorIs(err, errors.ErrUnauthorized)
	})
}
