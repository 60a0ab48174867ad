package model

// EventType names a message exchanged over the websocket protocol
type EventType string

// Inbound events (client -> server)
const (
	EventGetPlayerList EventType = "get-player-list"
	EventGetRole       EventType = "get-role"
	EventCreateSession EventType = "create-session"
	EventJoinSession   EventType = "join-session"
	EventStartGame     EventType = "start-game"
)

// Outbound events (server -> client)
const (
	EventPlayerList     EventType = "player-list"
	EventRole           EventType = "role"
	EventSessionCreated EventType = "session-created"
	EventSessionJoined  EventType = "session-joined"
	EventYourRole       EventType = "your-role"
	EventGameStarted    EventType = "start-game"
	EventErrorMessage   EventType = "error-message"
)

// GetPlayerListPayload requests the roster of a session
type GetPlayerListPayload struct {
	Code SessionCode `json:"code"`
}

// GetRolePayload requests the caller's assigned role, if any
type GetRolePayload struct {
	Code   SessionCode `json:"code"`
	UserID UserID      `json:"userId"`
}

// CreateSessionPayload carries the host's lobby configuration
type CreateSessionPayload struct {
	Username    string      `json:"username"`
	NbOfPlayers int         `json:"nbOfPlayers"`
	Roles       []RoleLabel `json:"roles"`
	DayTime     int         `json:"dayTime"`
	UserID      UserID      `json:"userId"`
}

// JoinSessionPayload carries a join or reconnect request
type JoinSessionPayload struct {
	Code     SessionCode `json:"code"`
	Username string      `json:"username"`
	UserID   UserID      `json:"userId"`
}

// StartGamePayload asks the server to assign roles and begin the game
type StartGamePayload struct {
	Code SessionCode `json:"code"`
}

// RolePayload is the reply to get-role. Role is nil when no assignment
// exists yet, which is not an error.
type RolePayload struct {
	Role *RoleLabel `json:"role"`
}

// YourRolePayload privately delivers an assigned role at game start
type YourRolePayload struct {
	Role RoleLabel `json:"role"`
}

// SessionCodePayload carries a bare session code in replies
type SessionCodePayload struct {
	Code SessionCode `json:"code"`
}
