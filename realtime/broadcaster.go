package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"echoforge/contract"
	"echoforge/domain"
	"echoforge/domain/event"
	"echoforge/errors"
)

// Broadcaster emits presence changes and ephemeral typing events.
// Everything here is at-most-once and never retried: a dropped typing
// event is acceptable.
type Broadcaster struct {
	log      *slog.Logger
	registry *SessionRegistry
	rooms    *RoomTracker
}

func NewBroadcaster(log *slog.Logger, registry *SessionRegistry, rooms *RoomTracker) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, rooms: rooms}
}

// PresenceChanged goes to every currently connected handle, not
// room-scoped, since any connected client may display any user's status.
func (b *Broadcaster) PresenceChanged(ctx context.Context, userID int64, status domain.PresenceStatus) {
	evt := event.PresenceChanged{UserID: userID, Status: status}
	for _, sink := range b.registry.AllSinks() {
		b.consume(ctx, sink, evt)
	}
}

// Typing routes a typing or stop-typing notification. Channel-scoped
// notifications reach every room member except the sender's own handle;
// direct notifications reach only the target's handle when online.
func (b *Broadcaster) Typing(ctx context.Context, conn ConnID, channelID, recipientID *int64, stopped bool) error {
	userID, ok := b.registry.Resolve(conn)
	if !ok {
		return errors.ErrUnauthorized
	}

	switch {
	case channelID != nil:
		evt := b.typingEvent(userID, channelID, stopped)
		for _, member := range b.rooms.MembersOf(*channelID) {
			if member == conn {
				continue
			}
			if sink, live := b.registry.SinkFor(member); live {
				b.consume(ctx, sink, evt)
			}
		}
	case recipientID != nil:
		if recipient, online := b.registry.Lookup(*recipientID); online {
			b.consume(ctx, recipient.Sink, b.typingEvent(userID, nil, stopped))
		}
	}
	return nil
}

// RelayFriendRequest passes the sender's payload through to the
// recipient's connection when online. Nothing is persisted here.
func (b *Broadcaster) RelayFriendRequest(ctx context.Context, conn ConnID, recipientID int64, payload json.RawMessage) error {
	if _, ok := b.registry.Resolve(conn); !ok {
		return errors.ErrUnauthorized
	}
	if recipient, online := b.registry.Lookup(recipientID); online {
		b.consume(ctx, recipient.Sink, event.FriendRequestReceived{Payload: payload})
	}
	return nil
}

func (b *Broadcaster) typingEvent(userID int64, channelID *int64, stopped bool) event.DomainEvent {
	if stopped {
		return event.UserStopTyping{UserID: userID, ChannelID: channelID}
	}
	return event.UserTyping{UserID: userID, ChannelID: channelID}
}

func (b *Broadcaster) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		b.log.Debug("Best-effort delivery skipped", "event", e.Name(), "error", err)
	}
}
