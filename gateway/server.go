// Package gateway is the websocket transport in front of the realtime
// core: it upgrades connections, enforces the connect-first handshake,
// decodes protocol frames into core calls, and pumps outbound events
// back to the peer.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	goerrors "errors"

	"echoforge/domain/event"
	"echoforge/errors"
	"echoforge/realtime"
	"echoforge/repositories"
)

type Gateway struct {
	log         *slog.Logger
	upgrader    websocket.Upgrader
	lifecycle   *realtime.Lifecycle
	router      *realtime.Router
	broadcaster *realtime.Broadcaster
	rooms       *realtime.RoomTracker
	channels    repositories.IChannelRepository
	bufferSize  int

	mu      sync.Mutex
	clients map[realtime.ConnID]*Client
}

func NewGateway(log *slog.Logger, lifecycle *realtime.Lifecycle, router *realtime.Router,
	broadcaster *realtime.Broadcaster, rooms *realtime.RoomTracker,
	channels repositories.IChannelRepository, bufferSize int) *Gateway {
	return &Gateway{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients carry the token in the connect frame, not
			// in headers, so cross-origin upgrades are allowed here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		lifecycle:   lifecycle,
		router:      router,
		broadcaster: broadcaster,
		rooms:       rooms,
		channels:    channels,
		bufferSize:  bufferSize,
		clients:     make(map[realtime.ConnID]*Client),
	}
}

// HandleWS upgrades the connection and runs it to completion. The first
// frame must be connect{token}; anything else refuses the connection
// without registering any state.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx := r.Context()
	client := newClient(conn, NewConnSink(g.log, g.bufferSize), g.log, realtime.ConnID(uuid.NewString()))

	userID, ok := g.authenticate(ctx, client)
	if !ok {
		_ = conn.Close()
		return
	}
	client.userID = userID

	g.track(client)
	go client.writePump()
	client.readPump(ctx, g)

	// Read side done: the connection is gone one way or another.
	g.lifecycle.Disconnect(ctx, client.id)
	g.untrack(client.id)
	client.close()
}

// authenticate enforces the connect-first handshake and registers the
// session through the lifecycle. Refusals are written straight to the
// socket since the write pump is not running yet.
func (g *Gateway) authenticate(ctx context.Context, client *Client) (int64, bool) {
	_ = client.conn.SetReadDeadline(time.Now().Add(authWait))
	_, data, err := client.conn.ReadMessage()
	if err != nil {
		return 0, false
	}

	env, err := decodeFrame(data)
	if err != nil || env.Type != evConnect {
		g.refuse(client, "Expected a connect event")
		return 0, false
	}
	payload, err := decodePayload[connectPayload](env)
	if err != nil {
		g.refuse(client, "Expected a connect event")
		return 0, false
	}

	userID, evicted, err := g.lifecycle.Connect(ctx, payload.Token, client.id, client.sink)
	if err != nil {
		g.refuse(client, "Authentication failed")
		return 0, false
	}
	if evicted != nil {
		// Last-connect-wins: shut the superseded socket down.
		if old := g.untrack(evicted.Conn); old != nil {
			old.close()
		}
	}
	return userID, true
}

func (g *Gateway) refuse(client *Client, reason string) {
	data, err := encodeEvent(event.Notice{Message: reason})
	if err != nil {
		return
	}
	_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = client.conn.WriteMessage(websocket.TextMessage, data)
}

// dispatch decodes one inbound frame and routes it to the owning
// component. Unexpected panics are caught here and turned into a
// generic error event instead of tearing the connection down.
func (g *Gateway) dispatch(ctx context.Context, client *Client, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			g.log.Error("Panic in event handler", "conn", client.id, "panic", rec)
			client.notify(ctx, "Internal error")
		}
	}()

	env, err := decodeFrame(data)
	if err != nil {
		client.notify(ctx, "Malformed event")
		return
	}

	switch env.Type {
	case evConnect:
		client.notify(ctx, "Already authenticated")

	case evJoinChannel:
		payload, err := decodePayload[channelPayload](env)
		if err != nil {
			client.notify(ctx, "Malformed event")
			return
		}
		g.joinChannel(ctx, client, payload.ChannelID)

	case evLeaveChannel:
		payload, err := decodePayload[channelPayload](env)
		if err != nil {
			client.notify(ctx, "Malformed event")
			return
		}
		g.rooms.Leave(payload.ChannelID, client.id)

	case evSendChannelMessage:
		payload, err := decodePayload[channelMessagePayload](env)
		if err != nil {
			client.notify(ctx, "Malformed event")
			return
		}
		if err := g.router.SendChannelMessage(ctx, client.id, payload.ChannelID, payload.Content); err != nil {
			client.notify(ctx, sendFailureMessage(err))
		}

	case evSendDM:
		payload, err := decodePayload[directMessagePayload](env)
		if err != nil {
			client.notify(ctx, "Malformed event")
			return
		}
		if err := g.router.SendDirectMessage(ctx, client.id, payload.RecipientID, payload.Content); err != nil {
			client.notify(ctx, sendFailureMessage(err))
		}

	case evTyping, evStopTyping:
		payload, err := decodePayload[typingPayload](env)
		if err != nil {
			client.notify(ctx, "Malformed event")
			return
		}
		stopped := env.Type == evStopTyping
		if err := g.broadcaster.Typing(ctx, client.id, payload.ChannelID, payload.RecipientID, stopped); err != nil {
			client.notify(ctx, "Unauthorized")
		}

	case evFriendRequest:
		payload, err := decodePayload[friendRequestPayload](env)
		if err != nil {
			client.notify(ctx, "Malformed event")
			return
		}
		if err := g.broadcaster.RelayFriendRequest(ctx, client.id, payload.RecipientID, env.Payload); err != nil {
			client.notify(ctx, "Unauthorized")
		}

	default:
		client.notify(ctx, "Unknown event type")
	}
}

// joinChannel performs the membership permission check against the
// durable store before touching the room tracker; the tracker itself
// stays permission-free.
func (g *Gateway) joinChannel(ctx context.Context, client *Client, channelID int64) {
	member, err := g.channels.IsChannelMember(client.userID, channelID)
	if err != nil {
		g.log.Error("Membership check failed", "user_id", client.userID, "channel_id", channelID, "error", err)
		client.notify(ctx, "Failed to join channel")
		return
	}
	if !member {
		client.notify(ctx, "Not a channel member")
		return
	}
	g.rooms.Join(channelID, client.id)
}

// sendFailureMessage maps routing errors onto client-facing wording.
func sendFailureMessage(err error) string {
	switch {
	case goerrors.Is(err, errors.ErrUnauthorized):
		return "Unauthorized"
	case goerrors.Is(err, errors.ErrEmptyContent):
		return "Message content is empty"
	case goerrors.Is(err, errors.ErrContentTooLong):
		return "Message content is too long"
	default:
		return "Failed to send message"
	}
}

func (g *Gateway) track(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[client.id] = client
}

func (g *Gateway) untrack(id realtime.ConnID) *Client {
	g.mu.Lock()
	defer g.mu.Unlock()
	client := g.clients[id]
	delete(g.clients, id)
	return client
}

// CloseAll tears down every tracked connection, used on shutdown.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	clients := make([]*Client, 0, len(g.clients))
	for _, client := range g.clients {
		clients = append(clients, client)
	}
	g.clients = make(map[realtime.ConnID]*Client)
	g.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}
