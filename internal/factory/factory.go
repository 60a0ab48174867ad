package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/clock"
	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/random"
	"github.com/nightfall-games/werewolf-lobby/internal/services/roles"
	"github.com/nightfall-games/werewolf-lobby/internal/services/session"
	"github.com/nightfall-games/werewolf-lobby/internal/storage"
	"github.com/nightfall-games/werewolf-lobby/internal/storage/memory"
	redisstorage "github.com/nightfall-games/werewolf-lobby/internal/storage/redis"
	"github.com/nightfall-games/werewolf-lobby/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	RolesService      *roles.Service
	SessionController *session.Controller

	// Transport
	Hub     *ws.Hub
	Gateway *ws.Gateway
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// GraceWindow overrides the disconnect grace period (optional)
	GraceWindow time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.GraceWindow, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	graceWindow time.Duration,
	logger *slog.Logger,
) *App {
	rolesService := roles.New(rnd, logger)
	sessionController := session.NewController(store, rolesService, clk, rnd, graceWindow, logger)
	hub := ws.NewHub(logger)
	gateway := ws.NewGateway(hub, sessionController, logger)

	// The registry pushes timer-driven roster changes through the gateway
	sessionController.SetNotifier(gateway)

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		RolesService:      rolesService,
		SessionController: sessionController,
		Hub:               hub,
		Gateway:           gateway,
	}
}
