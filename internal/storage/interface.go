package storage

import (
	"context"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
)

// Storage defines the interface for session state.
//
// The transport index is the secondary mapping from a live connection to the
// session that connection belongs to; it gives disconnect handling an O(1)
// lookup instead of a scan over all sessions.
type Storage interface {
	// Session operations
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, code model.SessionCode) (*model.Session, error)
	DeleteSession(ctx context.Context, code model.SessionCode) error
	SessionExists(ctx context.Context, code model.SessionCode) (bool, error)

	// Transport index operations
	SaveTransportIndex(ctx context.Context, transportID model.TransportID, code model.SessionCode) error
	GetTransportIndex(ctx context.Context, transportID model.TransportID) (model.SessionCode, error)
	DeleteTransportIndex(ctx context.Context, transportID model.TransportID) error
}
