package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/clock"
	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/random"
	"github.com/nightfall-games/werewolf-lobby/internal/model"
	"github.com/nightfall-games/werewolf-lobby/internal/services/roles"
	"github.com/nightfall-games/werewolf-lobby/internal/storage"
)

const (
	// CodeLength is the length of generated session codes
	CodeLength = 6
	// CodeAlphabet is the characters used in session codes
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultGraceWindow is how long a disconnected player (or host) has to
	// reconnect before removal takes effect. Same value for both.
	DefaultGraceWindow = 10 * time.Second
)

// Notifier receives side-effect notifications produced by the registry
// outside a direct request, i.e. from grace-timer expiry. The connection
// gateway implements it.
type Notifier interface {
	// RosterChanged reports that a session's roster shrank after a timed
	// removal and should be re-broadcast to its members
	RosterChanged(code model.SessionCode, roster []model.RosterEntry)

	// SessionClosed reports that a session was deleted
	SessionClosed(code model.SessionCode)
}

// CreateParams carries the host's configuration for a new session
type CreateParams struct {
	HostDisplayName string
	Capacity        int
	RolePool        []model.RoleLabel
	DayTimeSeconds  int
	HostUserID      model.UserID
	TransportID     model.TransportID
}

// RoleDelivery pairs an assigned role with the live transport it should be
// privately delivered to
type RoleDelivery struct {
	TransportID model.TransportID
	UserID      model.UserID
	Role        model.RoleLabel
}

// timerKey identifies a player's pending removal timer
type timerKey struct {
	code   model.SessionCode
	userID model.UserID
}

// Controller owns all session and player records and the grace-period timer
// machinery around them.
//
// A single mutex serializes every operation and every timer callback, so
// each runs to completion before the next begins and there is exactly one
// logical writer at any instant. Timer callbacks re-fetch their session by
// code and treat "not found" as a benign race, never an error.
type Controller struct {
	mu sync.Mutex

	storage  storage.Storage
	assigner *roles.Service
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	notifier Notifier

	graceWindow time.Duration

	// Live timer handles. At most one per player and one host timer per
	// session; arming always stops the prior handle first.
	playerTimers map[timerKey]clock.Timer
	hostTimers   map[model.SessionCode]clock.Timer
}

// NewController creates a new session registry controller
func NewController(
	storage storage.Storage,
	assigner *roles.Service,
	clk clock.Clock,
	random random.Random,
	graceWindow time.Duration,
	logger *slog.Logger,
) *Controller {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Controller{
		storage:      storage,
		assigner:     assigner,
		clock:        clk,
		random:       random,
		logger:       logger.With(slog.String("component", "session")),
		graceWindow:  graceWindow,
		playerTimers: make(map[timerKey]clock.Timer),
		hostTimers:   make(map[model.SessionCode]clock.Timer),
	}
}

// SetNotifier installs the gateway-side notifier. Must be called before the
// controller starts receiving traffic; notifications are skipped while nil.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Create generates a session code and inserts a new session with the caller
// as sole player and host
func (c *Controller) Create(ctx context.Context, params CreateParams) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if params.HostUserID == "" || params.HostDisplayName == "" {
		return nil, model.ErrInvalidPayload
	}

	now := c.clock.Now()

	// Generate a code unused by any live session
	var code model.SessionCode
	for {
		code = model.SessionCode(c.random.String(CodeLength, CodeAlphabet))
		exists, err := c.storage.SessionExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	session := &model.Session{
		Code:           code,
		Capacity:       params.Capacity,
		RolePool:       params.RolePool,
		DayTimeSeconds: params.DayTimeSeconds,
		Players: []model.Player{
			{
				TransportID: params.TransportID,
				UserID:      params.HostUserID,
				DisplayName: params.HostDisplayName,
			},
		},
		RoleAssignment: make(map[model.UserID]model.RoleLabel),
		HostUserID:     params.HostUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	if err := c.storage.SaveTransportIndex(ctx, params.TransportID, code); err != nil {
		return nil, err
	}

	c.logger.Info("session created",
		slog.String("session", string(code)),
		slog.String("host", string(params.HostUserID)),
		slog.Int("capacity", params.Capacity))

	return session, nil
}

// Roster returns the sanitized ordered player list for a session
func (c *Controller) Roster(ctx context.Context, code model.SessionCode) ([]model.RosterEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	return session.Roster(), nil
}

// RoleFor returns the role assigned to a user, or nil when none exists.
// A missing session is also "no role yet", not an error.
func (c *Controller) RoleFor(ctx context.Context, code model.SessionCode, userID model.UserID) (*model.RoleLabel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	role, ok := session.RoleAssignment[userID]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

// JoinOrReconnect adds a new player to a session or rebinds an existing one
// to a fresh transport. The reconnect path disarms the player's pending
// removal (and the host's session-deletion timer when the host returns) and
// preserves the player's roster position. Returns the updated roster and
// whether this was a brand-new join.
func (c *Controller) JoinOrReconnect(
	ctx context.Context,
	code model.SessionCode,
	userID model.UserID,
	displayName string,
	transportID model.TransportID,
) ([]model.RosterEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, false, err
	}

	if userID == "" || displayName == "" {
		return nil, false, model.ErrInvalidPayload
	}

	isNewJoin := false
	if existing := session.GetPlayer(userID); existing != nil {
		// Reconnect: cancel the pending removal, and the whole-session
		// deletion timer if this is the host coming back
		c.stopPlayerTimer(code, userID)
		if session.IsHost(userID) && c.stopHostTimer(code) {
			c.logger.Info("host reconnected, session deletion cancelled",
				slog.String("session", string(code)),
				slog.String("user", string(userID)))
		}

		if existing.TransportID != transportID {
			_ = c.storage.DeleteTransportIndex(ctx, existing.TransportID)
		}
		existing.TransportID = transportID
		existing.DisplayName = displayName

		c.logger.Info("player reconnected",
			slog.String("session", string(code)),
			slog.String("user", string(userID)))
	} else {
		if session.IsFull() {
			return nil, false, model.ErrSessionFull
		}
		session.Players = append(session.Players, model.Player{
			TransportID: transportID,
			UserID:      userID,
			DisplayName: displayName,
		})
		isNewJoin = true

		c.logger.Info("player joined",
			slog.String("session", string(code)),
			slog.String("user", string(userID)),
			slog.Int("players", len(session.Players)))
	}

	session.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, false, err
	}
	if err := c.storage.SaveTransportIndex(ctx, transportID, code); err != nil {
		return nil, false, err
	}

	return session.Roster(), isNewJoin, nil
}

// HandleDisconnect reacts to a closed transport. If the transport belonged
// to a session's host, the whole session is scheduled for deletion; if it
// belonged to an ordinary player, that player is scheduled for removal.
// Either timer is disarmed by a reconnect within the grace window. Unknown
// transports are a no-op.
func (c *Controller) HandleDisconnect(ctx context.Context, transportID model.TransportID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, err := c.storage.GetTransportIndex(ctx, transportID)
	if err != nil {
		if errors.Is(err, model.ErrTransportNotFound) {
			return nil
		}
		return err
	}
	_ = c.storage.DeleteTransportIndex(ctx, transportID)

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	player := session.GetPlayerByTransport(transportID)
	if player == nil {
		// The player already reconnected on a newer transport
		return nil
	}

	if session.IsHost(player.UserID) {
		c.armHostTimer(code)
		c.logger.Info("host disconnected, session deletion scheduled",
			slog.String("session", string(code)),
			slog.String("user", string(player.UserID)),
			slog.Duration("grace", c.graceWindow))
		return nil
	}

	c.armPlayerTimer(code, player.UserID)
	c.logger.Info("player disconnected, removal scheduled",
		slog.String("session", string(code)),
		slog.String("user", string(player.UserID)),
		slog.Duration("grace", c.graceWindow))
	return nil
}

// StartGame assigns roles to the session's players and returns the
// deliveries the gateway should make privately, one per assigned player
func (c *Controller) StartGame(ctx context.Context, code model.SessionCode) ([]RoleDelivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}

	assignment := c.assigner.Assign(session)

	session.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	// Deliveries follow roster order for the players that drew a role
	deliveries := make([]RoleDelivery, 0, len(assignment))
	for _, p := range session.Players {
		role, ok := assignment[p.UserID]
		if !ok {
			continue
		}
		deliveries = append(deliveries, RoleDelivery{
			TransportID: p.TransportID,
			UserID:      p.UserID,
			Role:        role,
		})
	}

	c.logger.Info("game started",
		slog.String("session", string(code)),
		slog.Int("assigned", len(deliveries)))

	return deliveries, nil
}

// Delete removes a session and cancels every timer it owns, so no dangling
// callback can ever fire against freed state
func (c *Controller) Delete(ctx context.Context, code model.SessionCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	return c.deleteSessionLocked(ctx, session)
}

// Shutdown cancels all live timers. Intended for process teardown.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, t := range c.playerTimers {
		t.Stop()
		delete(c.playerTimers, key)
	}
	for code, t := range c.hostTimers {
		t.Stop()
		delete(c.hostTimers, code)
	}
}

// Timer machinery. All callers hold c.mu.

func (c *Controller) armPlayerTimer(code model.SessionCode, userID model.UserID) {
	c.stopPlayerTimer(code, userID)
	key := timerKey{code: code, userID: userID}
	c.playerTimers[key] = c.clock.AfterFunc(c.graceWindow, func() {
		c.expirePlayer(code, userID)
	})
}

func (c *Controller) stopPlayerTimer(code model.SessionCode, userID model.UserID) bool {
	key := timerKey{code: code, userID: userID}
	t, ok := c.playerTimers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(c.playerTimers, key)
	return true
}

func (c *Controller) armHostTimer(code model.SessionCode) {
	c.stopHostTimer(code)
	c.hostTimers[code] = c.clock.AfterFunc(c.graceWindow, func() {
		c.expireHost(code)
	})
}

func (c *Controller) stopHostTimer(code model.SessionCode) bool {
	t, ok := c.hostTimers[code]
	if !ok {
		return false
	}
	t.Stop()
	delete(c.hostTimers, code)
	return true
}

// expirePlayer runs when a non-host player's grace window lapses without a
// reconnect: remove them from the roster, and delete the session if that
// left it empty
func (c *Controller) expirePlayer(code model.SessionCode, userID model.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.playerTimers, timerKey{code: code, userID: userID})

	ctx := context.Background()
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		// The session was already torn down by another path; benign race
		return
	}

	if !session.RemovePlayer(userID) {
		return
	}

	c.logger.Info("player removed after grace window",
		slog.String("session", string(code)),
		slog.String("user", string(userID)))

	if len(session.Players) == 0 {
		_ = c.deleteSessionLocked(ctx, session)
		return
	}

	session.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveSession(ctx, session); err != nil {
		c.logger.Error("failed to save session after removal",
			slog.String("session", string(code)),
			slog.String("error", err.Error()))
		return
	}

	if c.notifier != nil {
		c.notifier.RosterChanged(code, session.Roster())
	}
}

// expireHost runs when the host's grace window lapses without a reconnect:
// the whole session is deleted
func (c *Controller) expireHost(code model.SessionCode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.hostTimers, code)

	ctx := context.Background()
	session, err := c.storage.GetSession(ctx, code)
	if err != nil {
		return
	}

	c.logger.Info("host did not reconnect, deleting session",
		slog.String("session", string(code)))

	_ = c.deleteSessionLocked(ctx, session)
}

// deleteSessionLocked removes a session, cancelling every timer it owns
// first so no orphaned callback can fire afterwards. Caller holds c.mu.
func (c *Controller) deleteSessionLocked(ctx context.Context, session *model.Session) error {
	code := session.Code

	c.stopHostTimer(code)
	for _, p := range session.Players {
		c.stopPlayerTimer(code, p.UserID)
		_ = c.storage.DeleteTransportIndex(ctx, p.TransportID)
	}

	if err := c.storage.DeleteSession(ctx, code); err != nil {
		return err
	}

	c.logger.Info("session deleted", slog.String("session", string(code)))

	if c.notifier != nil {
		c.notifier.SessionClosed(code)
	}
	return nil
}

// ControllerInterface is the registry surface the gateway depends on
type ControllerInterface interface {
	Create(ctx context.Context, params CreateParams) (*model.Session, error)
	Roster(ctx context.Context, code model.SessionCode) ([]model.RosterEntry, error)
	RoleFor(ctx context.Context, code model.SessionCode, userID model.UserID) (*model.RoleLabel, error)
	JoinOrReconnect(ctx context.Context, code model.SessionCode, userID model.UserID, displayName string, transportID model.TransportID) ([]model.RosterEntry, bool, error)
	HandleDisconnect(ctx context.Context, transportID model.TransportID) error
	StartGame(ctx context.Context, code model.SessionCode) ([]RoleDelivery, error)
	Delete(ctx context.Context, code model.SessionCode) error
}

var _ ControllerInterface = (*Controller)(nil)
