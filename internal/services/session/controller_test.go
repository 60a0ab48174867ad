package session

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/mocks"
	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/random"
	"github.com/nightfall-games/werewolf-lobby/internal/model"
	"github.com/nightfall-games/werewolf-lobby/internal/services/roles"
	"github.com/nightfall-games/werewolf-lobby/internal/storage/memory"
	"github.com/nightfall-games/werewolf-lobby/internal/testutil"
)

type recordedRoster struct {
	code   model.SessionCode
	roster []model.RosterEntry
}

// fakeNotifier records registry notifications for assertions
type fakeNotifier struct {
	rosterChanges []recordedRoster
	closed        []model.SessionCode
}

func (n *fakeNotifier) RosterChanged(code model.SessionCode, roster []model.RosterEntry) {
	n.rosterChanges = append(n.rosterChanges, recordedRoster{code: code, roster: roster})
}

func (n *fakeNotifier) SessionClosed(code model.SessionCode) {
	n.closed = append(n.closed, code)
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	notifier   *fakeNotifier
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.notifier = &fakeNotifier{}
	logger := testutil.NopLogger()
	assigner := roles.New(s.random, logger)
	s.controller = NewController(s.storage, assigner, s.clock, s.random, 0, logger)
	s.controller.SetNotifier(s.notifier)
	s.ctx = context.Background()
}

func (s *ControllerSuite) createSession(code string, capacity int, pool ...model.RoleLabel) *model.Session {
	s.random.QueueString(code)
	created, err := s.controller.Create(s.ctx, CreateParams{
		HostDisplayName: "Alice",
		Capacity:        capacity,
		RolePool:        pool,
		DayTimeSeconds:  30,
		HostUserID:      "U1",
		TransportID:     "t-host",
	})
	s.Require().NoError(err)
	return created
}

func (s *ControllerSuite) join(code model.SessionCode, userID model.UserID, name string, transportID model.TransportID) []model.RosterEntry {
	roster, _, err := s.controller.JoinOrReconnect(s.ctx, code, userID, name, transportID)
	s.Require().NoError(err)
	return roster
}

// Create tests

func (s *ControllerSuite) TestCreateInsertsHostAsSolePlayer() {
	created := s.createSession("ABC123", 8, "werewolf", "villager")

	s.Equal(model.SessionCode("ABC123"), created.Code)
	s.Equal(8, created.Capacity)
	s.Equal(30, created.DayTimeSeconds)
	s.Equal(model.UserID("U1"), created.HostUserID)
	s.Require().Len(created.Players, 1)
	s.Equal(model.UserID("U1"), created.Players[0].UserID)
	s.Equal("Alice", created.Players[0].DisplayName)
	s.Empty(created.RoleAssignment)
}

func (s *ControllerSuite) TestCreateCodesMatchPattern() {
	// Real randomness here: every generated code must be 6 uppercase
	// alphanumerics regardless of what the generator draws
	logger := testutil.NopLogger()
	assigner := roles.New(s.random, logger)
	controller := NewController(s.storage, assigner, s.clock, random.New(), 0, logger)

	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 25; i++ {
		created, err := controller.Create(s.ctx, CreateParams{
			HostDisplayName: "Alice",
			Capacity:        4,
			HostUserID:      "U1",
			TransportID:     model.TransportID(string(rune('a' + i))),
		})
		s.Require().NoError(err)
		s.Regexp(pattern, string(created.Code))
	}
}

func (s *ControllerSuite) TestCreateRejectsMissingIdentity() {
	_, err := s.controller.Create(s.ctx, CreateParams{
		HostDisplayName: "",
		HostUserID:      "U1",
	})
	s.ErrorIs(err, model.ErrInvalidPayload)

	_, err = s.controller.Create(s.ctx, CreateParams{
		HostDisplayName: "Alice",
		HostUserID:      "",
	})
	s.ErrorIs(err, model.ErrInvalidPayload)
}

func (s *ControllerSuite) TestCreateRegeneratesOnCodeCollision() {
	s.createSession("AAAAAA", 4)

	s.random.QueueString("AAAAAA", "BBBBBB")
	created, err := s.controller.Create(s.ctx, CreateParams{
		HostDisplayName: "Bob",
		Capacity:        4,
		HostUserID:      "U2",
		TransportID:     "t-2",
	})
	s.Require().NoError(err)
	s.Equal(model.SessionCode("BBBBBB"), created.Code)
}

// Roster tests

func (s *ControllerSuite) TestRosterUnknownCode() {
	_, err := s.controller.Roster(s.ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestRosterPreservesJoinOrder() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")
	s.join(created.Code, "U3", "Carol", "t-3")

	roster, err := s.controller.Roster(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Require().Len(roster, 3)
	s.Equal(model.UserID("U1"), roster[0].UserID)
	s.Equal(model.UserID("U2"), roster[1].UserID)
	s.Equal(model.UserID("U3"), roster[2].UserID)
}

// Join tests

func (s *ControllerSuite) TestJoinUnknownCodeDoesNotMutate() {
	_, _, err := s.controller.JoinOrReconnect(s.ctx, "ZZZZZZ", "U2", "Bob", "t-2")
	s.ErrorIs(err, model.ErrSessionNotFound)

	exists, err := s.storage.SessionExists(s.ctx, "ZZZZZZ")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ControllerSuite) TestJoinRejectsMissingIdentity() {
	created := s.createSession("ABC123", 4)

	_, _, err := s.controller.JoinOrReconnect(s.ctx, created.Code, "", "Bob", "t-2")
	s.ErrorIs(err, model.ErrInvalidPayload)

	_, _, err = s.controller.JoinOrReconnect(s.ctx, created.Code, "U2", "", "t-2")
	s.ErrorIs(err, model.ErrInvalidPayload)
}

func (s *ControllerSuite) TestJoinFullSessionRejectsNewPlayer() {
	created := s.createSession("ABC123", 1)

	_, _, err := s.controller.JoinOrReconnect(s.ctx, created.Code, "U2", "Bob", "t-2")
	s.ErrorIs(err, model.ErrSessionFull)
}

func (s *ControllerSuite) TestRejoinAtCapacityDoesNotDuplicate() {
	created := s.createSession("ABC123", 1)

	// The host reconnecting is not a new join and ignores capacity
	roster, isNewJoin, err := s.controller.JoinOrReconnect(s.ctx, created.Code, "U1", "Alice", "t-host-2")
	s.Require().NoError(err)
	s.False(isNewJoin)
	s.Require().Len(roster, 1)
	s.Equal(model.TransportID("t-host-2"), roster[0].TransportID)
}

func (s *ControllerSuite) TestJoinReportsNewJoin() {
	created := s.createSession("ABC123", 4)

	_, isNewJoin, err := s.controller.JoinOrReconnect(s.ctx, created.Code, "U2", "Bob", "t-2")
	s.Require().NoError(err)
	s.True(isNewJoin)
}

// Disconnect and grace window tests

func (s *ControllerSuite) TestPlayerRemovedAfterGraceWindow() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")
	s.join(created.Code, "U3", "Carol", "t-3")

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2"))
	s.clock.Advance(DefaultGraceWindow)

	roster, err := s.controller.Roster(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Require().Len(roster, 2)
	s.Equal(model.UserID("U1"), roster[0].UserID)
	s.Equal(model.UserID("U3"), roster[1].UserID)

	// The shrunk roster was pushed to the remaining members
	s.Require().Len(s.notifier.rosterChanges, 1)
	s.Equal(created.Code, s.notifier.rosterChanges[0].code)
	s.Len(s.notifier.rosterChanges[0].roster, 2)
}

func (s *ControllerSuite) TestReconnectBeforeExpiryPreservesPosition() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")
	s.join(created.Code, "U3", "Carol", "t-3")

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2"))
	s.clock.Advance(DefaultGraceWindow / 2)

	roster, isNewJoin, err := s.controller.JoinOrReconnect(s.ctx, created.Code, "U2", "Bob", "t-2b")
	s.Require().NoError(err)
	s.False(isNewJoin)
	s.Require().Len(roster, 3)
	s.Equal(model.UserID("U2"), roster[1].UserID)
	s.Equal(model.TransportID("t-2b"), roster[1].TransportID)

	// Long after the original deadline, nothing has removed the player
	s.clock.Advance(DefaultGraceWindow * 3)
	roster, err = s.controller.Roster(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Len(roster, 3)
	s.Empty(s.notifier.rosterChanges)
}

func (s *ControllerSuite) TestHostExpiryDeletesSession() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-host"))
	s.clock.Advance(DefaultGraceWindow)

	_, err := s.controller.Roster(s.ctx, created.Code)
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Equal([]model.SessionCode{created.Code}, s.notifier.closed)
}

func (s *ControllerSuite) TestHostReconnectCancelsSessionDeletion() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-host"))
	s.clock.Advance(DefaultGraceWindow / 2)

	_, _, err := s.controller.JoinOrReconnect(s.ctx, created.Code, "U1", "Alice", "t-host-2")
	s.Require().NoError(err)

	s.clock.Advance(DefaultGraceWindow * 3)
	roster, err := s.controller.Roster(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Len(roster, 2)
	s.Empty(s.notifier.closed)
}

func (s *ControllerSuite) TestHostExpiryCancelsPlayerTimers() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")

	// Host timer arms first, player timer one second later; the host
	// expiry fires first and must sweep up the player's pending removal
	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-host"))
	s.clock.Advance(time.Second)
	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2"))

	s.clock.Advance(DefaultGraceWindow * 2)

	s.Equal([]model.SessionCode{created.Code}, s.notifier.closed)
	// No orphaned removal callback fired afterwards
	s.Empty(s.notifier.rosterChanges)
	s.Zero(s.clock.PendingTimers())
}

func (s *ControllerSuite) TestRemovalEmptyingRosterDeletesSession() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")

	// Force a roster where the last remaining player is not the host
	stored, err := s.storage.GetSession(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Require().True(stored.RemovePlayer("U1"))

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2"))
	s.clock.Advance(DefaultGraceWindow)

	_, err = s.controller.Roster(s.ctx, created.Code)
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Equal([]model.SessionCode{created.Code}, s.notifier.closed)
}

func (s *ControllerSuite) TestDisconnectUnknownTransportIsNoOp() {
	s.createSession("ABC123", 4)

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-unknown"))
	s.Zero(s.clock.PendingTimers())
}

func (s *ControllerSuite) TestRepeatedDisconnectReplacesTimer() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2"))
	s.clock.Advance(DefaultGraceWindow / 2)

	// Reconnect and drop again: only the second timer may fire
	s.join(created.Code, "U2", "Bob", "t-2b")
	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2b"))

	s.clock.Advance(DefaultGraceWindow / 2)
	roster, err := s.controller.Roster(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Len(roster, 2)

	s.clock.Advance(DefaultGraceWindow / 2)
	roster, err = s.controller.Roster(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Len(roster, 1)
}

// Role assignment tests

func (s *ControllerSuite) TestStartGameUnknownCode() {
	_, err := s.controller.StartGame(s.ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestStartGameAssignsDistinctRoles() {
	created := s.createSession("ABC123", 3, "werewolf", "seer", "villager")
	s.join(created.Code, "U2", "Bob", "t-2")
	s.join(created.Code, "U3", "Carol", "t-3")

	s.random.QueueIntn(0, 0)
	deliveries, err := s.controller.StartGame(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Require().Len(deliveries, 3)

	seen := make(map[model.RoleLabel]bool)
	for _, d := range deliveries {
		s.False(seen[d.Role], "role %q assigned twice", d.Role)
		seen[d.Role] = true
	}

	role, err := s.controller.RoleFor(s.ctx, created.Code, "U1")
	s.Require().NoError(err)
	s.Require().NotNil(role)
	s.Equal(deliveries[0].Role, *role)
}

func (s *ControllerSuite) TestStartGameRecomputesAssignment() {
	created := s.createSession("ABC123", 2, "werewolf", "seer")
	s.join(created.Code, "U2", "Bob", "t-2")

	// First shuffle keeps the pool order, second swaps it
	s.random.QueueIntn(1)
	first, err := s.controller.StartGame(s.ctx, created.Code)
	s.Require().NoError(err)

	s.random.QueueIntn(0)
	second, err := s.controller.StartGame(s.ctx, created.Code)
	s.Require().NoError(err)

	s.Require().Len(first, 2)
	s.Require().Len(second, 2)
	s.NotEqual(first[0].Role, second[0].Role)

	role, err := s.controller.RoleFor(s.ctx, created.Code, "U1")
	s.Require().NoError(err)
	s.Require().NotNil(role)
	s.Equal(second[0].Role, *role)
}

func (s *ControllerSuite) TestStartGameWithShortPoolLeavesExtraPlayersUnassigned() {
	created := s.createSession("ABC123", 3, "werewolf", "seer")
	s.join(created.Code, "U2", "Bob", "t-2")
	s.join(created.Code, "U3", "Carol", "t-3")

	s.random.QueueIntn(0)
	deliveries, err := s.controller.StartGame(s.ctx, created.Code)
	s.Require().NoError(err)
	s.Len(deliveries, 2)

	role, err := s.controller.RoleFor(s.ctx, created.Code, "U3")
	s.Require().NoError(err)
	s.Nil(role)
}

// RoleFor tests

func (s *ControllerSuite) TestRoleForMissingSessionIsNotAnError() {
	role, err := s.controller.RoleFor(s.ctx, "ZZZZZZ", "U1")
	s.Require().NoError(err)
	s.Nil(role)
}

func (s *ControllerSuite) TestRoleForBeforeStartIsNil() {
	created := s.createSession("ABC123", 4, "werewolf")

	role, err := s.controller.RoleFor(s.ctx, created.Code, "U1")
	s.Require().NoError(err)
	s.Nil(role)
}

// Delete tests

func (s *ControllerSuite) TestDeleteCancelsAllTimers() {
	created := s.createSession("ABC123", 4)
	s.join(created.Code, "U2", "Bob", "t-2")
	s.join(created.Code, "U3", "Carol", "t-3")

	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-2"))
	s.Require().NoError(s.controller.HandleDisconnect(s.ctx, "t-host"))

	s.Require().NoError(s.controller.Delete(s.ctx, created.Code))
	s.Zero(s.clock.PendingTimers())

	// Expired deadlines pass without any callback touching anything
	s.clock.Advance(DefaultGraceWindow * 2)
	s.Empty(s.notifier.rosterChanges)
	s.Equal([]model.SessionCode{created.Code}, s.notifier.closed)
}

func (s *ControllerSuite) TestDeleteUnknownCodeIsNoOp() {
	s.Require().NoError(s.controller.Delete(s.ctx, "ZZZZZZ"))
}
