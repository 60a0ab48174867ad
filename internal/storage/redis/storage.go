package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nightfall-games/werewolf-lobby/internal/model"
	"github.com/nightfall-games/werewolf-lobby/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Sessions are stored as JSON; grace-timer handles are process-local and are
// never serialized, so this backend does not extend presence tracking across
// server restarts.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, sessionKey(session.Code), data, s.cfg.SessionTTL).Err()
}

func (s *Storage) GetSession(ctx context.Context, code model.SessionCode) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, code model.SessionCode) error {
	return s.client.Del(ctx, sessionKey(code)).Err()
}

func (s *Storage) SessionExists(ctx context.Context, code model.SessionCode) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Transport index operations

func (s *Storage) SaveTransportIndex(ctx context.Context, transportID model.TransportID, code model.SessionCode) error {
	return s.client.Set(ctx, transportIndexKey(transportID), string(code), s.cfg.SessionTTL).Err()
}

func (s *Storage) GetTransportIndex(ctx context.Context, transportID model.TransportID) (model.SessionCode, error) {
	code, err := s.client.Get(ctx, transportIndexKey(transportID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrTransportNotFound
		}
		return "", err
	}
	return model.SessionCode(code), nil
}

func (s *Storage) DeleteTransportIndex(ctx context.Context, transportID model.TransportID) error {
	return s.client.Del(ctx, transportIndexKey(transportID)).Err()
}
