package model

// UserID is the stable client-supplied identity for a player.
// It survives reconnects; unique within a session.
type UserID string

// TransportID identifies a single live connection. It changes on every
// reconnect and is unique across the whole process.
type TransportID string

// Player represents one participant in a session
type Player struct {
	TransportID TransportID
	UserID      UserID
	DisplayName string
}

// DisplayNameMinLen and DisplayNameMaxLen bound user-chosen display names
const (
	DisplayNameMinLen = 1
	DisplayNameMaxLen = 15
)

// ValidDisplayName reports whether a display name is within bounds
func ValidDisplayName(name string) bool {
	return len(name) >= DisplayNameMinLen && len(name) <= DisplayNameMaxLen
}
