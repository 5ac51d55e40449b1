package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const frameTimeout = 5 * time.Second

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests.
// Without a server address the whole suite is skipped, so a plain
// `go test ./...` stays green on machines with no running gateway.
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set, skipping end-to-end suite")
	}
}

// frame mirrors the gateway's wire envelope.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsClient wraps one websocket connection with frame logging.
type wsClient struct {
	suite *BaseWsSuite
	name  string
	conn  *websocket.Conn
}

// RegisterUser creates an account over the HTTP auth surface and returns
// the session token.
func (s *BaseWsSuite) RegisterUser(username, email, password string) string {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	resp, err := http.Post(
		fmt.Sprintf("http://%s/api/auth/register", s.Config.ServerAddr),
		"application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Require().NotEmpty(out.Token)
	return out.Token
}

// Dial opens a websocket and performs the connect handshake with the
// given token.
func (s *BaseWsSuite) Dial(name, token string) *wsClient {
	header := fmt.Sprintf("  ====== %s connects ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	url := fmt.Sprintf("ws://%s/ws", s.Config.ServerAddr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err, "Failed to reach websocket endpoint at "+url)

	client := &wsClient{suite: s, name: name, conn: conn}
	client.Send("connect", map[string]any{"token": token})
	return client
}

func (c *wsClient) Close() {
	_ = c.conn.Close()
}

// Send marshals and writes one frame.
func (c *wsClient) Send(frameType string, payload any) {
	data, err := json.Marshal(payload)
	c.suite.Require().NoError(err)

	out, err := json.Marshal(frame{Type: frameType, Payload: data})
	c.suite.Require().NoError(err)

	if c.suite.Config.DebugFrames {
		c.suite.T().Logf("%s >> %s", c.name, out)
	}
	c.suite.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, out))
}

// Expect reads frames until one of the wanted type arrives, failing the
// test on timeout. Frames of other types are logged and dropped, since
// presence broadcasts may interleave with the frame under test.
func (c *wsClient) Expect(frameType string) frame {
	deadline := time.Now().Add(frameTimeout)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		_, data, err := c.conn.ReadMessage()
		c.suite.Require().NoError(err, "%s: no %q frame within %v", c.name, frameType, frameTimeout)

		if c.suite.Config.DebugFrames {
			c.suite.T().Logf("%s << %s", c.name, data)
		}

		var f frame
		c.suite.Require().NoError(json.Unmarshal(data, &f))
		if f.Type == frameType {
			return f
		}
	}
}

// ExpectNone asserts that no frame of the given type arrives within a
// short window.
func (c *wsClient) ExpectNone(frameType string, window time.Duration) {
	deadline := time.Now().Add(window)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return // timeout: nothing arrived, which is the expectation
		}
		var f frame
		if json.Unmarshal(data, &f) == nil && f.Type == frameType {
			c.suite.Require().Failf("unexpected frame", "%s received %q: %s", c.name, frameType, data)
		}
	}
}
