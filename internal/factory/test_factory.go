package factory

import (
	"time"

	"github.com/nightfall-games/werewolf-lobby/internal/dependencies/mocks"
	"github.com/nightfall-games/werewolf-lobby/internal/storage/memory"
	"github.com/nightfall-games/werewolf-lobby/internal/testutil"
)

// TestApp bundles an App with the mocks behind it
type TestApp struct {
	*App
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewForTest creates an App backed by in-memory storage and mock
// clock/random, so tests control time and code generation
func NewForTest() *TestApp {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := mocks.NewMockRandom()

	app := newWithDependencies(memory.New(), clk, rnd, 0, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  clk,
		MockRandom: rnd,
	}
}
