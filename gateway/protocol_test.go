package gateway

import (
	"encoding/json"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"echoforge/domain"
	"echoforge/domain/event"
)

func TestDecodeFrame(t *testing.T) {
	t.Run("should decode a typed frame", func(t *testing.T) {
		req := require.New(t)

		env, err := decodeFrame([]byte(`{"type":"send_dm","payload":{"recipientId":2,"content":"hi"}}`))

		req.NoError(err)
		req.Equal(evSendDM, env.Type)

		payload, err := decodePayload[directMessagePayload](env)
		req.NoError(err)
		req.Equal(int64(2), payload.RecipientID)
		req.Equal("hi", payload.Content)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		req := require.New(t)
		_, err := decodeFrame([]byte(`{"type":`))
		req.Error(err)
	})

	t.Run("should reject a frame without a type", func(t *testing.T) {
		req := require.New(t)
		_, err := decodeFrame([]byte(`{"payload":{}}`))
		req.Error(err)
	})
}

func TestDecodePayload(t *testing.T) {
	t.Run("should reject a missing payload", func(t *testing.T) {
		req := require.New(t)

		env, err := decodeFrame([]byte(`{"type":"join_channel"}`))
		req.NoError(err)

		_, err = decodePayload[channelPayload](env)
		req.Error(err)
	})

	t.Run("should reject a mistyped payload", func(t *testing.T) {
		req := require.New(t)

		env, err := decodeFrame([]byte(`{"type":"join_channel","payload":{"channelId":"seven"}}`))
		req.NoError(err)

		_, err = decodePayload[channelPayload](env)
		req.Error(err)
	})

	t.Run("should keep absent optional fields nil", func(t *testing.T) {
		req := require.New(t)

		env, err := decodeFrame([]byte(`{"type":"typing","payload":{"channelId":7}}`))
		req.NoError(err)

		payload, err := decodePayload[typingPayload](env)
		req.NoError(err)
		req.Equal(int64(7), *payload.ChannelID)
		req.Nil(payload.RecipientID)
	})
}

func TestEncodeEvent(t *testing.T) {
	t.Run("should wrap the event under its protocol name", func(t *testing.T) {
		req := require.New(t)

		data, err := encodeEvent(event.PresenceChanged{UserID: 1, Status: domain.StatusOnline})
		req.NoError(err)

		var env envelope
		req.NoError(json.Unmarshal(data, &env))
		req.Equal("user_status", env.Type)
		req.JSONEq(`{"userId":1,"status":"online"}`, string(env.Payload))
	})

	t.Run("should relay a friend request payload verbatim", func(t *testing.T) {
		req := require.New(t)

		payload := json.RawMessage(`{"from":1,"note":"hello"}`)
		data, err := encodeEvent(event.FriendRequestReceived{Payload: payload})
		req.NoError(err)

		var env envelope
		req.NoError(json.Unmarshal(data, &env))
		req.Equal("friend_request_received", env.Type)
		req.JSONEq(string(payload), string(env.Payload))
	})

	t.Run("should omit the channel id for direct typing", func(t *testing.T) {
		req := require.New(t)

		data, err := encodeEvent(event.UserTyping{UserID: 3})
		req.NoError(err)

		var env envelope
		req.NoError(json.Unmarshal(data, &env))
		req.Equal("user_typing", env.Type)
		req.JSONEq(`{"userId":3}`, string(env.Payload))
	})

	t.Run("should include the channel id for room typing", func(t *testing.T) {
		req := require.New(t)

		data, err := encodeEvent(event.UserTyping{UserID: 3, ChannelID: lo.ToPtr(int64(7))})
		req.NoError(err)

		var env envelope
		req.NoError(json.Unmarshal(data, &env))
		req.JSONEq(`{"userId":3,"channelId":7}`, string(env.Payload))
	})
}
