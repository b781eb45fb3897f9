package model

import (
	"strings"
	"time"
)

// ConnectionID uniquely identifies a live connection (and therefore a player)
type ConnectionID string

// Team is the side a player fights for
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Health bounds
const (
	MinHealth = 0
	MaxHealth = 100
)

// ParseTeam converts a client-supplied team value, defaulting to red
func ParseTeam(s string) Team {
	switch Team(strings.ToLower(strings.TrimSpace(s))) {
	case TeamBlue:
		return TeamBlue
	default:
		return TeamRed
	}
}

// Coordinate is the known part of the last position a client reported.
// The relay stores it as given and never range-checks it.
type Coordinate struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Altitude  *float64 `json:"alt,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Z         *float64 `json:"z,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// PlayerSession is the server-side record of one connected player
type PlayerSession struct {
	ConnectionID  ConnectionID
	DisplayName   string
	Team          Team
	Health        int
	Kills         int
	Deaths        int
	Position      *Coordinate // nil until the first position update
	CurrentWeapon WeaponID
	JoinedAt      time.Time
}

// Alive reports whether the session is not down
func (s PlayerSession) Alive() bool {
	return s.Health > MinHealth
}

// Clone returns a deep copy safe to hand out of the store
func (s *PlayerSession) Clone() PlayerSession {
	out := *s
	if s.Position != nil {
		pos := *s.Position
		out.Position = &pos
	}
	return out
}

// JoinRequest carries the optional values a client sends with joinGame
type JoinRequest struct {
	Name   string
	Team   string
	HP     int
	Weapon WeaponID
}

// ClampHealth bounds hp to [MinHealth, MaxHealth]
func ClampHealth(hp int) int {
	if hp < MinHealth {
		return MinHealth
	}
	if hp > MaxHealth {
		return MaxHealth
	}
	return hp
}
