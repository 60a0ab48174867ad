package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
)

// Envelope is the framing for every message on the wire, both directions
type Envelope struct {
	Event model.EventType `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks every connected client and the per-session rooms used for
// broadcasts. A client is in at most one room at a time.
type Hub struct {
	mu sync.RWMutex

	clients map[model.TransportID]*Client
	rooms   map[model.SessionCode]map[model.TransportID]*Client
	member  map[model.TransportID]model.SessionCode

	logger *slog.Logger
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.TransportID]*Client),
		rooms:   make(map[model.SessionCode]map[model.TransportID]*Client),
		member:  make(map[model.TransportID]model.SessionCode),
		logger:  logger.With(slog.String("component", "hub")),
	}
}

// Add registers a newly upgraded connection
func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.transportID] = client
	h.logger.Info("client connected",
		slog.String("transport", string(client.transportID)),
		slog.Int("total_clients", len(h.clients)))
}

// Remove drops a connection from the client table and its room, and closes
// its send channel
func (h *Hub) Remove(transportID model.TransportID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[transportID]
	if !ok {
		return
	}
	delete(h.clients, transportID)
	h.leaveRoomLocked(transportID)
	close(client.send)

	h.logger.Info("client disconnected",
		slog.String("transport", string(transportID)),
		slog.Int("total_clients", len(h.clients)))
}

// JoinRoom places a client in a session's room, leaving any previous room
func (h *Hub) JoinRoom(code model.SessionCode, transportID model.TransportID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[transportID]
	if !ok {
		return
	}

	h.leaveRoomLocked(transportID)

	room, ok := h.rooms[code]
	if !ok {
		room = make(map[model.TransportID]*Client)
		h.rooms[code] = room
	}
	room[transportID] = client
	h.member[transportID] = code
}

// CloseRoom forgets a session's room. The clients stay connected; they are
// free to create or join another session.
func (h *Hub) CloseRoom(code model.SessionCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for transportID := range h.rooms[code] {
		delete(h.member, transportID)
	}
	delete(h.rooms, code)
}

// BroadcastEvent sends an event to every client in a session's room
func (h *Hub) BroadcastEvent(code model.SessionCode, event model.EventType, data any) {
	message, err := marshalEnvelope(event, data)
	if err != nil {
		h.logger.Error("failed to marshal broadcast",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for transportID, client := range h.rooms[code] {
		select {
		case client.send <- message:
		default:
			h.logger.Warn("message dropped, client buffer full",
				slog.String("transport", string(transportID)))
		}
	}
}

// SendEvent sends an event to one client, addressed by transport id.
// Reports whether the client was connected.
func (h *Hub) SendEvent(transportID model.TransportID, event model.EventType, data any) bool {
	message, err := marshalEnvelope(event, data)
	if err != nil {
		h.logger.Error("failed to marshal message",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[transportID]
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		h.logger.Warn("message dropped, client buffer full",
			slog.String("transport", string(transportID)))
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in a session's room
func (h *Hub) RoomSize(code model.SessionCode) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// leaveRoomLocked removes a client from its current room, if any.
// Caller holds h.mu.
func (h *Hub) leaveRoomLocked(transportID model.TransportID) {
	code, ok := h.member[transportID]
	if !ok {
		return
	}
	delete(h.member, transportID)

	room, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(room, transportID)
	if len(room) == 0 {
		delete(h.rooms, code)
	}
}

func marshalEnvelope(event model.EventType, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
