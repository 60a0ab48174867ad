package redis

import (
	"fmt"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
)

// Key prefix for all lobby data
const keyPrefix = "wwlobby"

// sessionKey returns the Redis key for a Session
func sessionKey(code model.SessionCode) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, code)
}

// transportIndexKey returns the Redis key for the transport -> session code index
func transportIndexKey(transportID model.TransportID) string {
	return fmt.Sprintf("%s:idx:transport:%s", keyPrefix, transportID)
}
