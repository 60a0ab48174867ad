package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
	"github.com/nightfall-games/werewolf-lobby/internal/ws"
)

// DefaultWaitTimeout bounds how long commands wait for a server reply
const DefaultWaitTimeout = 5 * time.Second

// ErrServerMessage wraps an error-message reply from the server
var ErrServerMessage = errors.New("server error")

// Client is a websocket client speaking the lobby protocol
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the lobby server's websocket endpoint
func Dial(serverURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", serverURL, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one event envelope to the server
func (c *Client) Send(event model.EventType, data any) error {
	env := ws.Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		env.Data = raw
	}
	return c.conn.WriteJSON(env)
}

// ReadEvent reads the next envelope, waiting at most the given timeout
func (c *Client) ReadEvent(timeout time.Duration) (*ws.Envelope, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	var env ws.Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// WaitFor reads envelopes until one matches the wanted event. An
// error-message reply short-circuits with ErrServerMessage; other events
// are skipped.
func (c *Client) WaitFor(timeout time.Duration, wanted model.EventType) (*ws.Envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timed out waiting for %s", wanted)
		}

		env, err := c.ReadEvent(remaining)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, fmt.Errorf("timed out waiting for %s", wanted)
			}
			return nil, err
		}

		if env.Event == model.EventErrorMessage {
			var message string
			_ = json.Unmarshal(env.Data, &message)
			return nil, fmt.Errorf("%w: %s", ErrServerMessage, message)
		}
		if env.Event == wanted {
			return env, nil
		}
	}
}
