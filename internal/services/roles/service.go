package roles

import (
	"log/slog"

	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/random"
	"github.com/nightfall-games/werewolf-lobby/internal/model"
)

// Service distributes a session's configured role pool across its roster
type Service struct {
	random random.Random
	logger *slog.Logger
}

// New creates a new role assignment service
func New(random random.Random, logger *slog.Logger) *Service {
	return &Service{
		random: random,
		logger: logger.With(slog.String("component", "roles")),
	}
}

// Assign clears any prior assignment and pairs each player, in join order,
// with one entry of a uniformly shuffled copy of the role pool. When the
// roster and the pool differ in length, players or roles beyond the shorter
// length are left unassigned; that is a configuration issue for the host,
// not an error here.
//
// The session's RoleAssignment map is replaced; the new mapping is also
// returned. Safe to call repeatedly: every call is an independent shuffle.
func (s *Service) Assign(session *model.Session) map[model.UserID]model.RoleLabel {
	assignment := make(map[model.UserID]model.RoleLabel)

	shuffled := s.shuffle(session.RolePool)
	for i := 0; i < len(session.Players) && i < len(shuffled); i++ {
		assignment[session.Players[i].UserID] = shuffled[i]
	}

	session.RoleAssignment = assignment

	if len(session.Players) != len(session.RolePool) {
		s.logger.Warn("role pool size does not match roster",
			slog.String("session", string(session.Code)),
			slog.Int("players", len(session.Players)),
			slog.Int("roles", len(session.RolePool)))
	}

	return assignment
}

// shuffle returns a uniformly shuffled copy of the pool (Fisher-Yates,
// swapping each index from last down to 1 with a uniform index in [0, i])
func (s *Service) shuffle(pool []model.RoleLabel) []model.RoleLabel {
	shuffled := make([]model.RoleLabel, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.random.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
