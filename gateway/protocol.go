package gateway

import (
	"encoding/json"
	"fmt"

	"echoforge/domain/event"
)

// Inbound protocol event types.
const (
	evConnect            = "connect"
	evJoinChannel        = "join_channel"
	evLeaveChannel       = "leave_channel"
	evSendChannelMessage = "send_channel_message"
	evSendDM             = "send_dm"
	evTyping             = "typing"
	evStopTyping         = "stop_typing"
	evFriendRequest      = "friend_request"
)

// envelope is the wire form of every frame in both directions:
// a type tag plus a type-specific payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type connectPayload struct {
	Token string `json:"token"`
}

type channelPayload struct {
	ChannelID int64 `json:"channelId"`
}

type channelMessagePayload struct {
	ChannelID int64  `json:"channelId"`
	Content   string `json:"content"`
}

type directMessagePayload struct {
	RecipientID int64  `json:"recipientId"`
	Content     string `json:"content"`
}

type typingPayload struct {
	ChannelID   *int64 `json:"channelId,omitempty"`
	RecipientID *int64 `json:"recipientId,omitempty"`
}

// friendRequestPayload only extracts the routing target; the payload
// itself is relayed verbatim.
type friendRequestPayload struct {
	RecipientID int64 `json:"recipientId"`
}

func decodeFrame(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return envelope{}, fmt.Errorf("frame without a type")
	}
	return env, nil
}

func decodePayload[T any](env envelope) (T, error) {
	var payload T
	if len(env.Payload) == 0 {
		return payload, fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%s: malformed payload: %w", env.Type, err)
	}
	return payload, nil
}

// encodeEvent wraps an outbound event into its wire envelope, keyed by
// the event's protocol name.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: e.Name(), Payload: payload})
}
