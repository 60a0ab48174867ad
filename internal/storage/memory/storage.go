package memory

import (
	"context"
	"sync"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
	"github.com/nightfall-games/werewolf-lobby/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	sessions   map[model.SessionCode]*model.Session
	transports map[model.TransportID]model.SessionCode
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions:   make(map[model.SessionCode]*model.Session),
		transports: make(map[model.TransportID]model.SessionCode),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Code] = session
	return nil
}

func (s *Storage) GetSession(ctx context.Context, code model.SessionCode) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, code model.SessionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
	return nil
}

func (s *Storage) SessionExists(ctx context.Context, code model.SessionCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[code]
	return ok, nil
}

// Transport index operations

func (s *Storage) SaveTransportIndex(ctx context.Context, transportID model.TransportID, code model.SessionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transports[transportID] = code
	return nil
}

func (s *Storage) GetTransportIndex(ctx context.Context, transportID model.TransportID) (model.SessionCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.transports[transportID]
	if !ok {
		return "", model.ErrTransportNotFound
	}
	return code, nil
}

func (s *Storage) DeleteTransportIndex(ctx context.Context, transportID model.TransportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transports, transportID)
	return nil
}
