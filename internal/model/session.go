package model

import "time"

// SessionCode is the 6-character identifier players use to join a session.
// Unique among currently live sessions only; codes of deleted sessions may recur.
type SessionCode string

// RoleLabel is one entry of a session's configured role pool
type RoleLabel string

// Session is one lobby instance: its roster, configuration and, after a
// start, the current role assignment
type Session struct {
	Code           SessionCode
	Capacity       int
	RolePool       []RoleLabel
	DayTimeSeconds int
	Players        []Player // join order; order drives role distribution
	RoleAssignment map[UserID]RoleLabel
	HostUserID     UserID // the creator; never reassigned
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GetPlayer returns the player with the given user id, or nil if not present
func (s *Session) GetPlayer(userID UserID) *Player {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i]
		}
	}
	return nil
}

// GetPlayerByTransport returns the player currently bound to the given
// transport, or nil if none
func (s *Session) GetPlayerByTransport(transportID TransportID) *Player {
	for i := range s.Players {
		if s.Players[i].TransportID == transportID {
			return &s.Players[i]
		}
	}
	return nil
}

// RemovePlayer removes the player with the given user id, preserving the
// order of the remaining roster. Returns true if a player was removed.
func (s *Session) RemovePlayer(userID UserID) bool {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return true
		}
	}
	return false
}

// IsFull reports whether the roster has reached the configured capacity
func (s *Session) IsFull() bool {
	return len(s.Players) >= s.Capacity
}

// IsHost reports whether the given user id is the session's creator
func (s *Session) IsHost(userID UserID) bool {
	return userID == s.HostUserID
}

// Roster returns the sanitized player list exposed to clients.
// Never includes role assignments or any timer state.
func (s *Session) Roster() []RosterEntry {
	entries := make([]RosterEntry, len(s.Players))
	for i, p := range s.Players {
		entries[i] = RosterEntry{
			TransportID: p.TransportID,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
		}
	}
	return entries
}

// RosterEntry is one row of the sanitized player list.
// Wire names follow the original client protocol.
type RosterEntry struct {
	TransportID TransportID `json:"id"`
	UserID      UserID      `json:"userId"`
	DisplayName string      `json:"userName"`
}
