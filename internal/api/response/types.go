package response

import (
	"time"

	"github.com/mcoot/battlerelay/internal/abuse"
	"github.com/mcoot/battlerelay/internal/model"
)

// Status is the root health document
type Status struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Players int     `json:"players"`
	Uptime  float64 `json:"uptime"`
	Mode    string  `json:"mode"`
}

// Player represents one session in the roster
type Player struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Team     string            `json:"team"`
	Alive    bool              `json:"alive"`
	Kills    int               `json:"kills"`
	Deaths   int               `json:"deaths"`
	Health   int               `json:"health"`
	Weapon   string            `json:"weapon"`
	Position *model.Coordinate `json:"position,omitempty"`
}

// PlayerFromModel converts a session to a response Player
func PlayerFromModel(s model.PlayerSession) Player {
	return Player{
		ID:       string(s.ConnectionID),
		Name:     s.DisplayName,
		Team:     string(s.Team),
		Alive:    s.Alive(),
		Kills:    s.Kills,
		Deaths:   s.Deaths,
		Health:   s.Health,
		Weapon:   string(s.CurrentWeapon),
		Position: s.Position,
	}
}

// Players is the live roster with team counts
type Players struct {
	Success bool     `json:"success"`
	Total   int      `json:"total"`
	Red     int      `json:"red"`
	Blue    int      `json:"blue"`
	Players []Player `json:"players"`
}

// PlayersFromModel counts teams over one snapshot so totals always agree
func PlayersFromModel(sessions []model.PlayerSession) Players {
	out := Players{Success: true, Total: len(sessions), Players: make([]Player, 0, len(sessions))}
	for _, s := range sessions {
		switch s.Team {
		case model.TeamRed:
			out.Red++
		case model.TeamBlue:
			out.Blue++
		}
		out.Players = append(out.Players, PlayerFromModel(s))
	}
	return out
}

// PlayerDetail wraps a single player
type PlayerDetail struct {
	Success bool   `json:"success"`
	Player  Player `json:"player"`
}

// Weapons is the static weapon table keyed by id
type Weapons struct {
	Success       bool                                `json:"success"`
	DefaultWeapon string                              `json:"defaultWeapon"`
	Weapons       map[model.WeaponID]model.WeaponSpec `json:"weapons"`
}

// Weapon wraps a single weapon spec
type Weapon struct {
	Success bool             `json:"success"`
	ID      string           `json:"id"`
	Weapon  model.WeaponSpec `json:"weapon"`
}

// AntiCheatData carries the aggregate abuse counters
type AntiCheatData struct {
	SuspiciousActivities int64  `json:"suspiciousActivities"`
	RateLimits           int64  `json:"rateLimits"`
	System               string `json:"system"`
	LastCleanup          string `json:"lastCleanup"`
}

// AntiCheat is the anti-cheat status document
type AntiCheat struct {
	Success bool          `json:"success"`
	Data    AntiCheatData `json:"data"`
}

// AntiCheatFromStatus converts a monitor status
func AntiCheatFromStatus(s abuse.Status) AntiCheat {
	return AntiCheat{
		Success: true,
		Data: AntiCheatData{
			SuspiciousActivities: s.Counters.SuspiciousActivities,
			RateLimits:           s.Counters.RateLimits,
			System:               "active",
			LastCleanup:          s.LastCleanup.UTC().Format(time.RFC3339),
		},
	}
}
