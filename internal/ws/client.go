package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound buffer per client
	sendBufferSize = 256
)

// Client is one live websocket connection, identified by its transport id
type Client struct {
	transportID model.TransportID
	conn        *websocket.Conn
	send        chan []byte
	gateway     *Gateway
	logger      *slog.Logger
}

func newClient(transportID model.TransportID, conn *websocket.Conn, gateway *Gateway, logger *slog.Logger) *Client {
	return &Client{
		transportID: transportID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		gateway:     gateway,
		logger:      logger.With(slog.String("transport", string(transportID))),
	}
}

// readPump reads inbound envelopes and hands them to the gateway. It exits
// on any read error, which is also how disconnects surface.
func (c *Client) readPump() {
	defer func() {
		c.gateway.clientClosed(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		c.gateway.dispatch(c, message)
	}
}

// writePump drains the send channel to the connection and keeps the peer
// alive with periodic pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
