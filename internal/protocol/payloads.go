package protocol

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/battlerelay/internal/model"
)

// Inbound payloads

// JoinGame is sent once after connecting. Every field is optional.
type JoinGame struct {
	Name   string  `json:"name,omitempty"`
	Team   string  `json:"team,omitempty"`
	HP     float64 `json:"hp,omitempty"`
	Weapon string  `json:"weapon,omitempty"`
}

// ToRequest converts the payload into a store join request
func (j JoinGame) ToRequest() model.JoinRequest {
	hp := 0
	if !math.IsNaN(j.HP) && !math.IsInf(j.HP, 0) {
		hp = int(math.Max(math.Min(j.HP, model.MaxHealth), math.MinInt32))
	}
	return model.JoinRequest{
		Name:   j.Name,
		Team:   j.Team,
		HP:     hp,
		Weapon: model.WeaponID(j.Weapon),
	}
}

// PositionUpdate wraps a coordinate; gpsUpdate sends the coordinate bare
type PositionUpdate struct {
	Coordinate *model.Coordinate `json:"coordinate"`
}

// FireWeapon asks the server to resolve a shot. An empty weapon id means
// the shooter's current weapon.
type FireWeapon struct {
	WeaponID string `json:"weaponId" validate:"max=64"`
	TargetID string `json:"targetId,omitempty" validate:"max=128"`
}

// SwitchWeapon changes the player's current weapon
type SwitchWeapon struct {
	WeaponID string `json:"weaponId" validate:"required,max=64"`
}

// Outbound payloads

// ServerStatus greets a new connection. PlayerID is the id the relay
// assigned to the connection, so a client can recognise its own events.
type ServerStatus struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	PlayerID  string `json:"playerId"`
}

// NewServerStatus builds the greeting with a millisecond timestamp
func NewServerStatus(message, kind string, id model.ConnectionID, now time.Time) ServerStatus {
	return ServerStatus{Message: message, Type: kind, Timestamp: now.UnixMilli(), PlayerID: string(id)}
}

// Player is the full snapshot of one session
type Player struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Team     string            `json:"team"`
	HP       int               `json:"hp"`
	Alive    bool              `json:"alive"`
	Kills    int               `json:"kills"`
	Deaths   int               `json:"deaths"`
	Weapon   string            `json:"weapon"`
	Position *model.Coordinate `json:"position,omitempty"`
}

// PlayerFromModel converts a session into its wire snapshot
func PlayerFromModel(s model.PlayerSession) Player {
	return Player{
		ID:       string(s.ConnectionID),
		Name:     s.DisplayName,
		Team:     string(s.Team),
		HP:       s.Health,
		Alive:    s.Alive(),
		Kills:    s.Kills,
		Deaths:   s.Deaths,
		Weapon:   string(s.CurrentWeapon),
		Position: s.Position,
	}
}

// PlayerCount carries the live session count
type PlayerCount struct {
	Count int `json:"count"`
}

// PlayerLeft announces a removed session
type PlayerLeft struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PositionRelay is the outbound positionUpdate. Coordinate is the object
// the sender reported, unmodified.
type PositionRelay struct {
	PlayerID   string         `json:"playerId"`
	Coordinate map[string]any `json:"coordinate"`
}

// ShotFired reports the outcome of one shot
type ShotFired struct {
	ShooterID string `json:"shooterId"`
	WeaponID  string `json:"weaponId"`
	TargetID  string `json:"targetId,omitempty"`
	Damage    int    `json:"damage"`
	Hit       bool   `json:"hit"`
}

// ShotFiredFromOutcome converts a resolved shot
func ShotFiredFromOutcome(o model.ShotOutcome) ShotFired {
	return ShotFired{
		ShooterID: string(o.ShooterID),
		WeaponID:  string(o.WeaponID),
		TargetID:  string(o.TargetID),
		Damage:    o.Damage,
		Hit:       o.Hit,
	}
}

// PlayerKilled is the kill-feed entry for a death transition
type PlayerKilled struct {
	VictimID   string `json:"victimId"`
	VictimName string `json:"victimName"`
	KillerID   string `json:"killerId,omitempty"`
	KillerName string `json:"killerName,omitempty"`
	WeaponID   string `json:"weaponId"`
}

// WeaponChanged announces a weapon switch
type WeaponChanged struct {
	PlayerID string `json:"playerId"`
	WeaponID string `json:"weaponId"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodePayload unmarshals and validates an envelope's data. A missing
// payload decodes to the zero value, which then has to pass validation.
func DecodePayload[T any](codec Codec, env Envelope) (T, error) {
	var out T
	if len(env.Data) > 0 {
		if err := codec.Unmarshal(env.Data, &out); err != nil {
			return out, fmt.Errorf("%s: %w: %v", env.Event, model.ErrMalformedPayload, err)
		}
	}
	if err := validate.Struct(out); err != nil {
		return out, fmt.Errorf("%s: %w: %v", env.Event, model.ErrMalformedPayload, err)
	}
	return out, nil
}
