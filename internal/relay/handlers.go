package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/battlerelay/internal/metrics"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
)

func (r *Router) handleJoin(id model.ConnectionID, codec protocol.Codec, env protocol.Envelope) error {
	payload, err := protocol.DecodeJoin(codec, env)
	if err != nil {
		return err
	}

	player := r.store.Create(id, payload.ToRequest())
	r.metrics.Players.Set(float64(r.store.Count()))

	r.logger.Info("player joined",
		slog.String("connection_id", string(id)),
		slog.String("name", player.DisplayName),
		slog.String("team", string(player.Team)))

	r.Broadcast(protocol.Message{
		Event: protocol.EventPlayerJoined,
		Data:  protocol.PlayerFromModel(player),
	}, "")
	r.broadcastCount()
	return nil
}

// handleGPS takes the coordinate as the whole payload
func (r *Router) handleGPS(id model.ConnectionID, codec protocol.Codec, env protocol.Envelope) error {
	coord, err := protocol.DecodeObject(codec, env)
	if err != nil {
		return err
	}
	return r.relayPosition(id, coord)
}

func (r *Router) handlePosition(id model.ConnectionID, codec protocol.Codec, env protocol.Envelope) error {
	payload, err := protocol.DecodeObject(codec, env)
	if err != nil {
		return err
	}
	coord, ok := payload["coordinate"].(map[string]any)
	if !ok {
		return fmt.Errorf("%s: coordinate is not an object: %w", env.Event, model.ErrMalformedPayload)
	}
	return r.relayPosition(id, coord)
}

// relayPosition stores the known fields and forwards the reported object
// untouched. It never echoes the update back to its sender.
func (r *Router) relayPosition(id model.ConnectionID, coord map[string]any) error {
	if err := r.store.UpdatePosition(id, protocol.CoordinateFromObject(coord)); err != nil {
		return err
	}
	r.Broadcast(protocol.Message{
		Event: protocol.EventPositionUpdate,
		Data:  protocol.PositionRelay{PlayerID: string(id), Coordinate: coord},
	}, id)
	return nil
}

func (r *Router) handleFire(ctx context.Context, id model.ConnectionID, codec protocol.Codec, env protocol.Envelope) error {
	payload, err := protocol.DecodePayload[protocol.FireWeapon](codec, env)
	if err != nil {
		return err
	}

	shooter, err := r.store.Get(id)
	if err != nil {
		r.logger.Debug("fire from unjoined connection", slog.String("connection_id", string(id)))
		return err
	}

	weaponID := model.WeaponID(payload.WeaponID)
	if weaponID == "" {
		weaponID = shooter.CurrentWeapon
	}
	if !r.monitor.AllowFire(ctx, id, weaponID) {
		return model.ErrRateLimited
	}

	targetID := model.ConnectionID(payload.TargetID)
	if targetID == id {
		r.monitor.FlagSuspicious(ctx, id, "self-targeted fire")
	}

	outcome, err := r.engine.ResolveFire(ctx, id, weaponID, targetID)
	if err != nil {
		if errors.Is(err, model.ErrInvalidWeapon) {
			r.logger.Debug("fire with invalid weapon",
				slog.String("connection_id", string(id)),
				slog.String("weapon_id", string(weaponID)))
		}
		return err
	}
	r.metrics.Shots.WithLabelValues(string(outcome.WeaponID), metrics.ShotOutcome(outcome.Hit, outcome.Killed)).Inc()

	r.Broadcast(protocol.Message{
		Event: protocol.EventShotFired,
		Data:  protocol.ShotFiredFromOutcome(outcome),
	}, "")

	if outcome.Killed {
		r.metrics.Kills.Inc()
		r.broadcastKill(shooter, outcome)
	}
	return nil
}

func (r *Router) broadcastKill(shooter model.PlayerSession, outcome model.ShotOutcome) {
	victim, err := r.store.Get(outcome.TargetID)
	if err != nil {
		// the victim left between the shot and the kill feed
		return
	}
	killed := protocol.PlayerKilled{
		VictimID:   string(victim.ConnectionID),
		VictimName: victim.DisplayName,
		WeaponID:   string(outcome.WeaponID),
	}
	if shooter.ConnectionID != victim.ConnectionID {
		killed.KillerID = string(shooter.ConnectionID)
		killed.KillerName = shooter.DisplayName
	}

	r.logger.Info("player killed",
		slog.String("victim", victim.DisplayName),
		slog.String("killer", killed.KillerName),
		slog.String("weapon_id", killed.WeaponID))

	r.Broadcast(protocol.Message{Event: protocol.EventPlayerKilled, Data: killed}, "")
}

func (r *Router) handleRespawn(id model.ConnectionID) error {
	player, err := r.store.Respawn(id)
	if err != nil {
		return err
	}
	r.Broadcast(protocol.Message{
		Event: protocol.EventPlayerRespawned,
		Data:  protocol.PlayerFromModel(player),
	}, "")
	return nil
}

func (r *Router) handleSwitchWeapon(id model.ConnectionID, codec protocol.Codec, env protocol.Envelope) error {
	payload, err := protocol.DecodePayload[protocol.SwitchWeapon](codec, env)
	if err != nil {
		return err
	}
	player, err := r.store.SetWeapon(id, model.WeaponID(payload.WeaponID))
	if err != nil {
		return err
	}
	r.Broadcast(protocol.Message{
		Event: protocol.EventWeaponChanged,
		Data:  protocol.WeaponChanged{PlayerID: string(id), WeaponID: string(player.CurrentWeapon)},
	}, id)
	return nil
}
