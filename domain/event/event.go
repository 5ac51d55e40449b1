// Package event defines the outbound realtime events fanned out to
// connected clients. Event names double as the wire protocol types.
package event

import (
	"encoding/json"

	"echoforge/domain"
)

type DomainEvent interface {
	// Name is the protocol event type under which the payload is sent.
	Name() string
}

// PresenceChanged is broadcast to every connected client, not
// room-scoped: any client may display any user's status.
type PresenceChanged struct {
	UserID int64                 `json:"userId"`
	Status domain.PresenceStatus `json:"status"`
}

func (PresenceChanged) Name() string { return "user_status" }

// ChannelMessage carries a persisted channel message to every
// connection subscribed to the room, the sender included.
type ChannelMessage struct {
	domain.MessageView
}

func (ChannelMessage) Name() string { return "channel_message" }

// DirectMessage goes to the recipient when online and is always echoed
// back to the sender.
type DirectMessage struct {
	domain.MessageView
}

func (DirectMessage) Name() string { return "dm_message" }

// UserTyping is ephemeral: at most once, never retried, never echoed to
// the sender in the channel case. ChannelID is nil for direct typing.
type UserTyping struct {
	UserID    int64  `json:"userId"`
	ChannelID *int64 `json:"channelId,omitempty"`
}

func (UserTyping) Name() string { return "user_typing" }

type UserStopTyping struct {
	UserID    int64  `json:"userId"`
	ChannelID *int64 `json:"channelId,omitempty"`
}

func (UserStopTyping) Name() string { return "user_stop_typing" }

// FriendRequestReceived relays the sender's payload verbatim to the
// recipient; the core never interprets or persists it.
type FriendRequestReceived struct {
	Payload json.RawMessage
}

func (FriendRequestReceived) Name() string { return "friend_request_received" }

func (f FriendRequestReceived) MarshalJSON() ([]byte, error) {
	return f.Payload, nil
}

// Notice reports an authorization, validation, or persistence failure
// to the offending connection only.
type Notice struct {
	Message string `json:"message"`
}

func (Notice) Name() string { return "error" }
