package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"echoforge/domain/event"
	"echoforge/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum frame size allowed from peer.
	maxFrameSize = 64 * 1024
	// Time allowed for the connect frame after the upgrade.
	authWait = 10 * time.Second
)

// Client is the transport side of one live connection. It owns the
// websocket; the realtime core only ever sees the ConnID and the sink.
type Client struct {
	id     realtime.ConnID
	userID int64
	conn   *websocket.Conn
	sink   *ConnSink
	log    *slog.Logger

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, sink *ConnSink, log *slog.Logger, id realtime.ConnID) *Client {
	return &Client{id: id, conn: conn, sink: sink, log: log}
}

// notify emits an error event to this connection only.
func (c *Client) notify(ctx context.Context, message string) {
	_ = c.sink.Consume(ctx, event.Notice{Message: message})
}

// close shuts the sink and the underlying socket. Safe to call from
// both the read path and an eviction.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sink.Close()
		_ = c.conn.Close()
	})
}

// readPump reads frames until the peer goes away and hands each one to
// the gateway dispatcher. It runs on the connection's handler goroutine.
func (c *Client) readPump(ctx context.Context, g *Gateway) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Unexpected close", "conn", c.id, "error", err)
			}
			return
		}
		g.dispatch(ctx, c, data)
	}
}

// writePump drains the sink into the socket and keeps the connection
// alive with pings. It exits when the sink closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.sink.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case evt := <-c.sink.Events():
			data, err := encodeEvent(evt)
			if err != nil {
				c.log.Error("Could not encode outbound event", "event", evt.Name(), "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
