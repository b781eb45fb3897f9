package factory

import (
	"time"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/combat"
	"github.com/mcoot/battlerelay/internal/dependencies/mocks"
	"github.com/mcoot/battlerelay/internal/storage/memory"
	"github.com/mcoot/battlerelay/internal/testutil"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Message rate limiting is off so scripted clients are never throttled.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	abuseCfg := abuse.DefaultConfig()
	abuseCfg.MessageRate = 0

	app := newWithDependencies(
		memory.New(),
		weapons.Default(),
		combat.FixedRandomDamagePolicy{},
		mockClock,
		mockRandom,
		Config{Abuse: abuseCfg},
		testutil.NopLogger(),
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// QueueShot scripts the next fixed-random roll: damage is 10+damageRoll and
// the shot hits when hitRoll >= 30.
func (t *TestApp) QueueShot(damageRoll, hitRoll int) {
	t.MockRandom.QueueIntn(damageRoll, hitRoll)
}
