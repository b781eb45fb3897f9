// Package combat resolves fireWeapon events into shot outcomes.
package combat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/battlerelay/internal/dependencies/random"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/session"
	"github.com/mcoot/battlerelay/internal/weapons"
)

// Engine is the Weapon Resolution Engine
type Engine struct {
	store   *session.Store
	weapons *weapons.Table
	policy  DamagePolicy
	random  random.Random
	logger  *slog.Logger
}

// NewEngine creates an engine using the given damage policy
func NewEngine(store *session.Store, table *weapons.Table, policy DamagePolicy, rnd random.Random, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		weapons: table,
		policy:  policy,
		random:  rnd,
		logger:  logger.With(slog.String("component", "combat"), slog.String("policy", policy.Name())),
	}
}

// Policy returns the active damage policy
func (e *Engine) Policy() DamagePolicy {
	return e.policy
}

// ResolveFire resolves one shot. An empty weapon id means the shooter's
// current weapon. Unknown weapons fail with model.ErrInvalidWeapon before
// anything is rolled or changed. A shot without a joined target is a miss;
// a miss always reports zero damage.
func (e *Engine) ResolveFire(ctx context.Context, shooterID model.ConnectionID, weaponID model.WeaponID, targetID model.ConnectionID) (model.ShotOutcome, error) {
	if err := ctx.Err(); err != nil {
		return model.ShotOutcome{}, err
	}

	shooter, err := e.store.Get(shooterID)
	if err != nil {
		return model.ShotOutcome{}, err
	}

	if weaponID == "" {
		weaponID = shooter.CurrentWeapon
	}
	spec, err := e.weapons.Get(weaponID)
	if err != nil {
		return model.ShotOutcome{}, err
	}

	roll := e.policy.Roll(spec, e.random)
	outcome := model.ShotOutcome{
		ShooterID: shooterID,
		WeaponID:  weaponID,
		TargetID:  targetID,
		Hit:       roll.Hit && targetID != "",
	}

	if outcome.Hit {
		result, err := e.store.ApplyDamage(targetID, roll.Damage, shooterID)
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			e.logger.Debug("shot at unknown target",
				slog.String("shooter_id", string(shooterID)),
				slog.String("target_id", string(targetID)))
			outcome.Hit = false
		case err != nil:
			return model.ShotOutcome{}, err
		default:
			outcome.Damage = roll.Damage
			outcome.Killed = result.Died
			outcome.TargetHealth = result.Victim.Health
		}
	}

	e.logger.Debug("shot resolved",
		slog.String("shooter_id", string(shooterID)),
		slog.String("weapon_id", string(weaponID)),
		slog.String("target_id", string(targetID)),
		slog.Int("damage", outcome.Damage),
		slog.Bool("hit", outcome.Hit),
		slog.Bool("killed", outcome.Killed))

	return outcome, nil
}
