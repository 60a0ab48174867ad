package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
	"github.com/nightfall-games/werewolf-lobby/internal/services/session"
)

// Error strings reported to the originating connection. The client matches
// on these exact messages.
const (
	msgLobbyDoesNotExist  = "Lobby does not exist."
	msgInvalidSessionCode = "Invalid session code."
	msgMissingIdentity    = "Missing userId or username."
	msgSessionFull        = "Session is full."
	msgSessionNotFound    = "Session not found."
	msgInvalidPayload     = "Invalid payload."
)

// Gateway is the event-dispatch boundary: it upgrades connections, decodes
// inbound envelopes, validates payloads, invokes the session registry and
// emits broadcasts or private replies. Errors go only to the originating
// connection; nothing here is fatal to the process.
type Gateway struct {
	hub      *Hub
	sessions session.ControllerInterface
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewGateway creates a new connection gateway
func NewGateway(hub *Hub, sessions session.ControllerInterface, logger *slog.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from a different origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "gateway")),
	}
}

// Ensure the gateway can receive registry notifications
var _ session.Notifier = (*Gateway)(nil)

// ServeWS upgrades an HTTP request to a websocket connection and starts the
// client's read/write pumps. Each connection gets a fresh transport id.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	transportID := model.TransportID(uuid.NewString())
	client := newClient(transportID, conn, g, g.logger)
	g.hub.Add(client)

	go client.writePump()
	go client.readPump()
}

// RosterChanged implements session.Notifier: re-broadcast the roster after
// a timed removal
func (g *Gateway) RosterChanged(code model.SessionCode, roster []model.RosterEntry) {
	g.hub.BroadcastEvent(code, model.EventPlayerList, roster)
}

// SessionClosed implements session.Notifier: tear down the room
func (g *Gateway) SessionClosed(code model.SessionCode) {
	g.hub.CloseRoom(code)
}

// clientClosed runs when a connection's read pump exits for any reason
func (g *Gateway) clientClosed(c *Client) {
	g.hub.Remove(c.transportID)
	if err := g.sessions.HandleDisconnect(context.Background(), c.transportID); err != nil {
		g.logger.Error("disconnect handling failed",
			slog.String("transport", string(c.transportID)),
			slog.String("error", err.Error()))
	}
}

// dispatch routes one inbound envelope to its handler
func (g *Gateway) dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.sendError(c, msgInvalidPayload)
		return
	}

	ctx := context.Background()

	switch env.Event {
	case model.EventGetPlayerList:
		g.handleGetPlayerList(ctx, c, env.Data)
	case model.EventGetRole:
		g.handleGetRole(ctx, c, env.Data)
	case model.EventCreateSession:
		g.handleCreateSession(ctx, c, env.Data)
	case model.EventJoinSession:
		g.handleJoinSession(ctx, c, env.Data)
	case model.EventStartGame:
		g.handleStartGame(ctx, c, env.Data)
	default:
		g.logger.Warn("unknown event",
			slog.String("event", string(env.Event)),
			slog.String("transport", string(c.transportID)))
	}
}

func (g *Gateway) handleGetPlayerList(ctx context.Context, c *Client, data json.RawMessage) {
	var payload model.GetPlayerListPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(c, msgInvalidPayload)
		return
	}

	roster, err := g.sessions.Roster(ctx, payload.Code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			g.sendError(c, msgLobbyDoesNotExist)
			return
		}
		g.internalError(c, err)
		return
	}

	g.hub.SendEvent(c.transportID, model.EventPlayerList, roster)
}

func (g *Gateway) handleGetRole(ctx context.Context, c *Client, data json.RawMessage) {
	var payload model.GetRolePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(c, msgInvalidPayload)
		return
	}

	// A missing session or an unstarted game both reply with a nil role;
	// neither is an error
	role, err := g.sessions.RoleFor(ctx, payload.Code, payload.UserID)
	if err != nil {
		g.internalError(c, err)
		return
	}

	g.hub.SendEvent(c.transportID, model.EventRole, model.RolePayload{Role: role})
}

func (g *Gateway) handleCreateSession(ctx context.Context, c *Client, data json.RawMessage) {
	var payload model.CreateSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(c, msgInvalidPayload)
		return
	}

	if payload.UserID == "" || !model.ValidDisplayName(payload.Username) {
		g.sendError(c, msgMissingIdentity)
		return
	}

	created, err := g.sessions.Create(ctx, session.CreateParams{
		HostDisplayName: payload.Username,
		Capacity:        payload.NbOfPlayers,
		RolePool:        payload.Roles,
		DayTimeSeconds:  payload.DayTime,
		HostUserID:      payload.UserID,
		TransportID:     c.transportID,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidPayload) {
			g.sendError(c, msgMissingIdentity)
			return
		}
		g.internalError(c, err)
		return
	}

	g.hub.JoinRoom(created.Code, c.transportID)
	g.hub.SendEvent(c.transportID, model.EventSessionCreated, model.SessionCodePayload{Code: created.Code})
	g.hub.BroadcastEvent(created.Code, model.EventPlayerList, created.Roster())
}

func (g *Gateway) handleJoinSession(ctx context.Context, c *Client, data json.RawMessage) {
	var payload model.JoinSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(c, msgInvalidPayload)
		return
	}

	if payload.Username != "" && !model.ValidDisplayName(payload.Username) {
		g.sendError(c, msgMissingIdentity)
		return
	}

	roster, _, err := g.sessions.JoinOrReconnect(ctx, payload.Code, payload.UserID, payload.Username, c.transportID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			g.sendError(c, msgInvalidSessionCode)
		case errors.Is(err, model.ErrInvalidPayload):
			g.sendError(c, msgMissingIdentity)
		case errors.Is(err, model.ErrSessionFull):
			g.sendError(c, msgSessionFull)
		default:
			g.internalError(c, err)
		}
		return
	}

	g.hub.JoinRoom(payload.Code, c.transportID)
	g.hub.SendEvent(c.transportID, model.EventSessionJoined, model.SessionCodePayload{Code: payload.Code})
	g.hub.BroadcastEvent(payload.Code, model.EventPlayerList, roster)
}

func (g *Gateway) handleStartGame(ctx context.Context, c *Client, data json.RawMessage) {
	var payload model.StartGamePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(c, msgInvalidPayload)
		return
	}

	deliveries, err := g.sessions.StartGame(ctx, payload.Code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			g.sendError(c, msgSessionNotFound)
			return
		}
		g.internalError(c, err)
		return
	}

	// Private delivery first, then the public start signal
	for _, d := range deliveries {
		g.hub.SendEvent(d.TransportID, model.EventYourRole, model.YourRolePayload{Role: d.Role})
	}
	g.hub.BroadcastEvent(payload.Code, model.EventGameStarted, nil)
}

// sendError reports a human-readable message to the originating connection
func (g *Gateway) sendError(c *Client, message string) {
	g.hub.SendEvent(c.transportID, model.EventErrorMessage, message)
}

func (g *Gateway) internalError(c *Client, err error) {
	g.logger.Error("registry operation failed",
		slog.String("transport", string(c.transportID)),
		slog.String("error", err.Error()))
	g.sendError(c, msgInvalidPayload)
}
