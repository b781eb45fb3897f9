package combat

import (
	"fmt"
	"strings"

	"github.com/mcoot/battlerelay/internal/dependencies/random"
	"github.com/mcoot/battlerelay/internal/model"
)

// Policy names accepted by PolicyByName
const (
	PolicyFixedRandom = "fixed-random"
	PolicyWeaponStats = "weapon-stats"
)

// Roll is the raw result of a damage policy before target checks
type Roll struct {
	Damage int
	Hit    bool
}

// DamagePolicy decides how much a shot hurts and whether it lands
type DamagePolicy interface {
	Name() string
	Roll(weapon model.WeaponSpec, rnd random.Random) Roll
}

// FixedRandomDamagePolicy ignores the weapon's stats: damage is uniform in
// [10, 34] and the hit chance is a flat 70%.
type FixedRandomDamagePolicy struct{}

const (
	fixedMinDamage   = 10
	fixedDamageSpan  = 25
	fixedMissPercent = 30
)

func (FixedRandomDamagePolicy) Name() string { return PolicyFixedRandom }

// Roll draws damage first and then the hit check
func (FixedRandomDamagePolicy) Roll(_ model.WeaponSpec, rnd random.Random) Roll {
	damage := fixedMinDamage + rnd.Intn(fixedDamageSpan)
	hit := rnd.Intn(100) >= fixedMissPercent
	return Roll{Damage: damage, Hit: hit}
}

// WeaponStatDamagePolicy uses the weapon table: damage is the weapon's
// damage and a shot hits when a roll in [0, 100) is below its accuracy.
type WeaponStatDamagePolicy struct{}

func (WeaponStatDamagePolicy) Name() string { return PolicyWeaponStats }

func (WeaponStatDamagePolicy) Roll(weapon model.WeaponSpec, rnd random.Random) Roll {
	return Roll{
		Damage: weapon.Damage,
		Hit:    rnd.Intn(100) < weapon.Accuracy,
	}
}

// PolicyByName maps a configured name onto a policy. Empty means the
// fixed-random default.
func PolicyByName(name string) (DamagePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFixedRandom:
		return FixedRandomDamagePolicy{}, nil
	case PolicyWeaponStats:
		return WeaponStatDamagePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown damage policy %q", name)
	}
}
